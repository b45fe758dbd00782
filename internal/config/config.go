package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Database    DatabaseConfig    `yaml:"database" mapstructure:"database"`
	FEC         FECConfig         `yaml:"fec" mapstructure:"fec"`
	Verify      VerifyConfig      `yaml:"verify" mapstructure:"verify"`
	Aggregate   AggregateConfig   `yaml:"aggregate" mapstructure:"aggregate"`
	Consolidate ConsolidateConfig `yaml:"consolidate" mapstructure:"consolidate"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig configures the Postgres backend.
type DatabaseConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// FECConfig configures bulk-file ingest.
type FECConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	DataYears      []int  `yaml:"data_years" mapstructure:"data_years"`
	TempDir        string `yaml:"temp_dir" mapstructure:"temp_dir"`
	CheckpointPath string `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	SeedsPath      string `yaml:"seeds_path" mapstructure:"seeds_path"`
}

// VerifyConfig configures AI verification of variant groups.
type VerifyConfig struct {
	Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AggregateConfig configures the summary build phase.
type AggregateConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ConsolidateConfig configures the consolidation phase.
type ConsolidateConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FECPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fec.base_url", "https://www.fec.gov/files/bulk-downloads")
	v.SetDefault("fec.data_years", []int{2026})
	v.SetDefault("fec.temp_dir", "/tmp/fec-pipeline")
	v.SetDefault("fec.checkpoint_path", "/tmp/fec-pipeline/checkpoints.db")
	v.SetDefault("fec.batch_size", 5000)
	v.SetDefault("fec.seeds_path", "seeds.yaml")
	v.SetDefault("verify.enabled", false)
	v.SetDefault("verify.model", "claude-haiku-4-5-20251001")
	v.SetDefault("verify.max_tokens", 64)
	v.SetDefault("verify.requests_per_sec", 2)
	v.SetDefault("verify.timeout_secs", 20)
	v.SetDefault("aggregate.concurrency", 4)
	v.SetDefault("consolidate.concurrency", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given command
// mode. Database-backed modes need a connection URL; verification needs an
// API key only when enabled.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "pipeline":
		if c.Database.URL == "" {
			problems = append(problems, "database.url is required")
		}
		if len(c.FEC.DataYears) == 0 {
			problems = append(problems, "fec.data_years must name at least one year")
		}
		if c.FEC.BatchSize < 1 {
			problems = append(problems, "fec.batch_size must be >= 1")
		}
		if c.Aggregate.Concurrency < 1 || c.Aggregate.Concurrency > 64 {
			problems = append(problems, "aggregate.concurrency must be between 1 and 64")
		}
		if c.Consolidate.Concurrency < 1 || c.Consolidate.Concurrency > 64 {
			problems = append(problems, "consolidate.concurrency must be between 1 and 64")
		}
		if c.Verify.Enabled && c.Verify.Key == "" {
			problems = append(problems, "verify.key is required when verify.enabled is true")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
