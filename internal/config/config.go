package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gollh/internal/errors"
)

// Config is the immutable configuration of one analysis construction. It is
// built once and handed to constructors; nothing reads it globally.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" validate:"required"`
	Dataset  DatasetConfig  `yaml:"dataset" validate:"required"`
	Units    UnitsConfig    `yaml:"units" validate:"required"`
	Logging  LoggingConfig  `yaml:"logging" validate:"required"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AnalysisConfig holds evaluation settings
type AnalysisConfig struct {
	NCPU                 int    `yaml:"ncpu" validate:"min=1"`
	IndexFieldName       string `yaml:"index_field_name"`
	MaxSignalGenAttempts int    `yaml:"max_signal_gen_attempts" validate:"min=1"`
}

// DatasetConfig lists the data fields every dataset must provide
type DatasetConfig struct {
	RequiredExpFieldNames []string `yaml:"required_exp_field_names" validate:"min=1,dive,required"`
	RequiredMCFieldNames  []string `yaml:"required_mc_field_names" validate:"min=1,dive,required"`
}

// UnitsConfig records the unit conventions of the numeric inputs
type UnitsConfig struct {
	Angle  string `yaml:"angle" validate:"oneof=rad deg"`
	Energy string `yaml:"energy" validate:"oneof=GeV TeV"`
	Time   string `yaml:"time" validate:"oneof=MJD"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=ERROR WARN INFO DEBUG TRACE"`
}

// DatabaseConfig holds the optional trial store connection
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// MetricsConfig toggles the prometheus timing collector
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			NCPU:                 runtime.NumCPU(),
			MaxSignalGenAttempts: 100,
		},
		Dataset: DatasetConfig{
			RequiredExpFieldNames: []string{"run", "ra", "dec", "ang_err", "time", "log_energy"},
			RequiredMCFieldNames:  []string{"true_ra", "true_dec", "true_energy", "mcweight"},
		},
		Units: UnitsConfig{
			Angle:  "rad",
			Energy: "GeV",
			Time:   "MJD",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(errors.WithCode(errors.CodeConfigInvalid, err), "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(errors.WithCode(errors.CodeConfigInvalid, err), "failed to parse config file %s", path)
		}
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Analysis.NCPU = getEnvIntOrDefault("LLH_NCPU", cfg.Analysis.NCPU)
	cfg.Analysis.IndexFieldName = getEnvOrDefault("LLH_INDEX_FIELD", cfg.Analysis.IndexFieldName)
	cfg.Analysis.MaxSignalGenAttempts = getEnvIntOrDefault("LLH_MAX_SIGGEN_ATTEMPTS", cfg.Analysis.MaxSignalGenAttempts)
	cfg.Dataset.RequiredExpFieldNames = getEnvListOrDefault("LLH_REQUIRED_EXP_FIELDS", cfg.Dataset.RequiredExpFieldNames)
	cfg.Dataset.RequiredMCFieldNames = getEnvListOrDefault("LLH_REQUIRED_MC_FIELDS", cfg.Dataset.RequiredMCFieldNames)
	cfg.Logging.Level = strings.ToUpper(getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level))
	cfg.Database.URL = getEnvOrDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Metrics.Enabled = getEnvBoolOrDefault("LLH_METRICS_ENABLED", cfg.Metrics.Enabled)
}

// Validate checks the struct tags of the configuration.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "invalid configuration")
	}
	return nil
}

// RequiredExpFieldSet returns the union of the required experimental field
// names and the given extra names, in first-seen order.
func (c DatasetConfig) RequiredExpFieldSet(extra ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, names := range [][]string{c.RequiredExpFieldNames, extra} {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
