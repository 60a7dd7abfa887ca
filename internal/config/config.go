package config

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/YuminosukeSato/catnb/pkg/errors"
	"github.com/YuminosukeSato/catnb/sklearn/naive_bayes"
	"gopkg.in/yaml.v3"
)

// Config represents catnb configuration
type Config struct {
	// Smoothing and scoring settings
	Model ModelConfig `yaml:"model"`

	// Hold-out validation settings
	Validation ValidationConfig `yaml:"validation"`

	// HTTP API settings
	Server ServerConfig `yaml:"server"`

	// Model and result persistence
	Store StoreConfig `yaml:"store"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig contains the classifier constants
type ModelConfig struct {
	LaplaceAlpha      float64 `yaml:"laplace_alpha"`
	UnseenProbability float64 `yaml:"unseen_probability"`

	// Batches larger than this are classified in parallel; negative disables
	ParallelThreshold int `yaml:"parallel_threshold"`
	Workers           int `yaml:"workers"` // 0 = number of CPUs
}

// ValidationConfig contains split and cross-validation defaults
type ValidationConfig struct {
	TestFraction float64 `yaml:"test_fraction"`
	Seed         uint64  `yaml:"seed"`
	Folds        int     `yaml:"folds"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	Mode           string        `yaml:"mode"` // gin mode: debug, release, test
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend   string        `yaml:"backend"` // file, memory, redis, sqlite
	Path      string        `yaml:"path"`    // directory for file, database file for sqlite
	RedisURL  string        `yaml:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"` // redis only; 0 keeps entries forever
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Supported store backends
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	nb := naive_bayes.DefaultConfig()
	return &Config{
		Model: ModelConfig{
			LaplaceAlpha:      nb.LaplaceAlpha,
			UnseenProbability: nb.UnseenProbability,
			ParallelThreshold: naive_bayes.DefaultParallelThreshold,
			Workers:           0,
		},
		Validation: ValidationConfig{
			TestFraction: 0.3,
			Seed:         42,
			Folds:        5,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			MaxUploadBytes: 100 << 20,
			Mode:           "release",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
		},
		Store: StoreConfig{
			Backend:   BackendFile,
			Path:      ".catnb",
			RedisURL:  "redis://localhost:6379",
			KeyPrefix: "catnb:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from file. An empty path yields the defaults;
// keys missing from the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Newf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return config, nil
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.NaiveBayes().Validate(); err != nil {
		return err
	}

	v := c.Validation
	if v.TestFraction <= 0 || v.TestFraction >= 1 {
		return errors.NewValidationError("validation.test_fraction", "must be in (0, 1)", v.TestFraction)
	}
	if v.Folds < 2 {
		return errors.NewValidationError("validation.folds", "must be >= 2", v.Folds)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return errors.NewValidationError("server.max_upload_bytes", "must be positive", c.Server.MaxUploadBytes)
	}
	if !slices.Contains([]string{"debug", "release", "test"}, c.Server.Mode) {
		return errors.NewValidationError("server.mode", "must be debug, release or test", c.Server.Mode)
	}

	switch c.Store.Backend {
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			return errors.NewValidationError("store.path", "is required for the "+c.Store.Backend+" backend", c.Store.Path)
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return errors.NewValidationError("store.redis_url", "is required for the redis backend", c.Store.RedisURL)
		}
	case BackendMemory:
	default:
		return errors.NewValidationError("store.backend", "must be file, memory, redis or sqlite", c.Store.Backend)
	}
	if c.Store.TTL < 0 {
		return errors.NewValidationError("store.ttl", "must not be negative", c.Store.TTL)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return errors.NewValidationError("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return errors.NewValidationError("logging.format", "must be json or console", c.Logging.Format)
	}
	return nil
}

// NaiveBayes converts the model section into the classifier configuration.
func (c *Config) NaiveBayes() naive_bayes.Config {
	return naive_bayes.Config{
		LaplaceAlpha:      c.Model.LaplaceAlpha,
		UnseenProbability: c.Model.UnseenProbability,
	}
}

// NaiveBayesOptions returns the trainer and classifier options for this configuration.
func (c *Config) NaiveBayesOptions() []naive_bayes.Option {
	return []naive_bayes.Option{
		naive_bayes.WithConfig(c.NaiveBayes()),
		naive_bayes.WithParallelThreshold(c.Model.ParallelThreshold),
		naive_bayes.WithWorkers(c.Model.Workers),
	}
}
