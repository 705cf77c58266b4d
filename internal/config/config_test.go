package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/internal/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(&cfg))
	assert.Equal(t, []string{"run", "ra", "dec", "ang_err", "time", "log_energy"}, cfg.Dataset.RequiredExpFieldNames)
	assert.Equal(t, []string{"true_ra", "true_dec", "true_energy", "mcweight"}, cfg.Dataset.RequiredMCFieldNames)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  ncpu: 3
  index_field_name: time
  max_signal_gen_attempts: 7
logging:
  level: DEBUG
`), 0o644))

	t.Setenv("LLH_NCPU", "5")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Analysis.NCPU)
	assert.Equal(t, "time", cfg.Analysis.IndexFieldName)
	assert.Equal(t, 7, cfg.Analysis.MaxSignalGenAttempts)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "rad", cfg.Units.Angle)
}

func TestLoad_InvalidNCPU(t *testing.T) {
	t.Setenv("LLH_NCPU", "0")
	_, err := Load("")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestRequiredExpFieldSet(t *testing.T) {
	cfg := Default()
	got := cfg.Dataset.RequiredExpFieldSet("ra", "azi", "sin_dec")
	assert.Equal(t, []string{"run", "ra", "dec", "ang_err", "time", "log_energy", "azi", "sin_dec"}, got)
}
