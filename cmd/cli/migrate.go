package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"gollh/adapters/excel"
	"gollh/adapters/postgres"
	"gollh/internal/migration"
	"gollh/ports"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var importDir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the trial store schema and import exported trial workbooks",
		Long: `Run the trial store migrations against DATABASE_URL. With --import every
*.xlsx trial workbook in the directory is stored as a run.

Example: DATABASE_URL=postgres://... gollh-cli migrate --import ./trials`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), root, importDir)
		},
	}
	cmd.Flags().StringVar(&importDir, "import", "", "Directory of trial workbooks to import")
	return cmd
}

func runMigrate(ctx context.Context, root *rootOptions, importDir string) error {
	log := root.log
	if root.cfg.Database.URL == "" {
		return fmt.Errorf("migrate requires DATABASE_URL")
	}
	db, err := postgres.Connect(root.cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return err
	}
	log.Info("trial store schema at version %s", runner.Version())

	if importDir == "" {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(importDir, "*.xlsx"))
	if err != nil {
		return err
	}
	var repo ports.TrialRepository = postgres.NewTrialRepository(db)
	imported, skipped := 0, 0
	for _, file := range files {
		rn, results, err := excel.ReadTrialWorkbook(file)
		if err != nil {
			log.Warn("skipping %s: %v", file, err)
			skipped++
			continue
		}
		if err := repo.SaveRun(ctx, rn); err != nil {
			return err
		}
		if err := repo.SaveResults(ctx, rn.ID, results); err != nil {
			return err
		}
		imported++
	}
	log.Info("imported %d trial workbooks, skipped %d", imported, skipped)
	return nil
}
