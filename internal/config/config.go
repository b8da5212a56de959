// Package config loads application configuration from file and environment.
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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Survey    SurveyConfig    `yaml:"survey" mapstructure:"survey"`
	Frontier  FrontierConfig  `yaml:"frontier" mapstructure:"frontier"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Ceiling   CeilingConfig   `yaml:"ceiling" mapstructure:"ceiling"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the optional results store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SurveyConfig configures data preparation.
type SurveyConfig struct {
	SpecPath string  `yaml:"spec_path" mapstructure:"spec_path"`
	Epsilon  float64 `yaml:"epsilon" mapstructure:"epsilon"`
}

// FrontierConfig configures the stochastic frontier fit.
type FrontierConfig struct {
	FitTranslog   bool    `yaml:"fit_translog" mapstructure:"fit_translog"`
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance" mapstructure:"tolerance"`
}

// ClassifyConfig configures the stratified field classifier.
type ClassifyConfig struct {
	LowerPct float64  `yaml:"lower_pct" mapstructure:"lower_pct"`
	UpperPct float64  `yaml:"upper_pct" mapstructure:"upper_pct"`
	Keys     []string `yaml:"keys" mapstructure:"keys"`
}

// CeilingConfig configures the yield-ceiling resolver.
type CeilingConfig struct {
	ThresholdKM float64 `yaml:"threshold_km" mapstructure:"threshold_km"`
}

// AggregateConfig configures the reporting aggregator.
type AggregateConfig struct {
	GroupBy []string `yaml:"group_by" mapstructure:"group_by"`
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
	v.SetEnvPrefix("YIELDGAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("frontier.max_iterations", 5000)
	v.SetDefault("frontier.tolerance", 1e-10)
	v.SetDefault("classify.lower_pct", 0.10)
	v.SetDefault("classify.upper_pct", 0.90)
	v.SetDefault("ceiling.threshold_km", 30.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env cover everything.
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
