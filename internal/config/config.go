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
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Finder     FinderConfig     `yaml:"finder" mapstructure:"finder"`
	Normalizer NormalizerConfig `yaml:"normalizer" mapstructure:"normalizer"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// FinderConfig configures the business finder boundary.
type FinderConfig struct {
	TargetResults     int     `yaml:"target_results" mapstructure:"target_results"`
	MaxSearchUses     int     `yaml:"max_search_uses" mapstructure:"max_search_uses"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// NormalizerConfig configures the lead cleaning boundary.
type NormalizerConfig struct {
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SessionConfig configures the commit-cycle progress UI timing.
type SessionConfig struct {
	ProgressTickMs int `yaml:"progress_tick_ms" mapstructure:"progress_tick_ms"`
	ReadyDelayMs   int `yaml:"ready_delay_ms" mapstructure:"ready_delay_ms"`
}

// SalesforceConfig holds Salesforce JWT auth settings for the CRM push.
// All fields empty means the push is disabled.
type SalesforceConfig struct {
	ClientID          string  `yaml:"client_id" mapstructure:"client_id"`
	Username          string  `yaml:"username" mapstructure:"username"`
	KeyPath           string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL          string  `yaml:"login_url" mapstructure:"login_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("LEADMAGNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	// Registered empty so environment-only values survive Unmarshal.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("finder.target_results", 25)
	v.SetDefault("finder.max_search_uses", 8)
	v.SetDefault("finder.max_tokens", 8192)
	v.SetDefault("finder.requests_per_minute", 10)
	v.SetDefault("normalizer.chunk_size", 20)
	v.SetDefault("normalizer.max_tokens", 8192)
	v.SetDefault("session.progress_tick_ms", 60)
	v.SetDefault("session.ready_delay_ms", 1500)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.requests_per_second", 5)

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
