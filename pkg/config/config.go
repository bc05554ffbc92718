// Package config provides configuration loading and validation for the
// testevo CLI.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/testevo/pkg/cache"
	"github.com/Sumatoshi-tech/testevo/pkg/safeconv"
	"github.com/Sumatoshi-tech/testevo/pkg/timeseries"
)

// Validation sentinels.
var (
	ErrInvalidWorkers     = errors.New("scan workers must be positive")
	ErrInvalidGranularity = errors.New("invalid scan granularity")
	ErrInvalidCacheSize   = errors.New("invalid cache size")
)

// Defaults applied before file and environment values.
const (
	defaultBranch      = "main"
	defaultGranularity = "yearly"
	defaultCacheSize   = "256 MiB"
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
)

// Config holds all configuration for the testevo CLI.
type Config struct {
	Scan    ScanConfig    `mapstructure:"scan"`
	Forge   ForgeConfig   `mapstructure:"forge"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScanConfig controls the history walk and aggregation.
type ScanConfig struct {
	Branch      string `mapstructure:"branch"`
	Granularity string `mapstructure:"granularity"`
	Workers     int    `mapstructure:"workers"`
}

// ForgeConfig controls the pull request and issue provider.
type ForgeConfig struct {
	Token   string `mapstructure:"token"`
	Enabled bool   `mapstructure:"enabled"`
}

// CacheConfig controls the on-disk scan cache.
type CacheConfig struct {
	Directory string `mapstructure:"directory"`
	MaxSize   string `mapstructure:"max_size"`
	Enabled   bool   `mapstructure:"enabled"`
}

// Bytes parses the configured cache size bound.
func (c CacheConfig) Bytes() (int64, error) {
	size, err := humanize.ParseBytes(c.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCacheSize, c.MaxSize)
	}

	return safeconv.SafeInt64(size), nil
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("testevo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/testevo")
	}

	v.SetEnvPrefix("TESTEVO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Scan defaults.
	v.SetDefault("scan.branch", defaultBranch)
	v.SetDefault("scan.granularity", defaultGranularity)
	v.SetDefault("scan.workers", runtime.NumCPU())

	// Forge defaults.
	v.SetDefault("forge.enabled", true)
	v.SetDefault("forge.token", "")

	// Cache defaults.
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.directory", cache.DefaultDir())
	v.SetDefault("cache.max_size", defaultCacheSize)

	// Logging defaults.
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.format", defaultLogFormat)
}

func validate(cfg *Config) error {
	if cfg.Scan.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Scan.Workers)
	}

	if _, err := timeseries.ParseGranularity(cfg.Scan.Granularity); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidGranularity, cfg.Scan.Granularity)
	}

	if _, err := cfg.Cache.Bytes(); err != nil {
		return err
	}

	return nil
}
