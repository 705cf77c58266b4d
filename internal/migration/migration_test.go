package migration

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func TestRunner_StepsAreIdempotent(t *testing.T) {
	r := NewRunner()
	steps := r.Steps()
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	if !strings.Contains(steps[0].SQL, "trial_runs") || !strings.Contains(steps[1].SQL, "trial_results") {
		t.Errorf("runs table must be created before results table")
	}
	for _, s := range steps {
		if !strings.Contains(s.SQL, "IF NOT EXISTS") {
			t.Errorf("step %q is not idempotent", s.Name)
		}
	}
	if r.Version() == "" {
		t.Error("version must not be empty")
	}
}

func TestRunner_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := NewRunner().Run(ctx, db); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}
