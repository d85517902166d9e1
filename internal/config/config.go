package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderMemory  = "memory"
	ProviderAmadeus = "amadeus"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMonitorInterval = errors.New("invalid monitor interval")
)

type Config struct {
	Env                   string        `mapstructure:"ENV"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	HTTPHost              string        `mapstructure:"HTTP_HOST"`
	HTTPPort              string        `mapstructure:"HTTP_PORT"`
	HTTPReadHeaderTimeout time.Duration `mapstructure:"HTTP_READ_HEADER_TIMEOUT"`
	Provider              string        `mapstructure:"PROVIDER"`
	SearchCacheTTL        time.Duration `mapstructure:"SEARCH_CACHE_TTL"`
	MonitorInterval       time.Duration `mapstructure:"MONITOR_DEFAULT_INTERVAL"`
	MonitorMinInterval    time.Duration `mapstructure:"MONITOR_MIN_INTERVAL"`
	MonitorMaxSessions    int           `mapstructure:"MONITOR_MAX_SESSIONS"`
}

var defaults = map[string]any{
	"ENV":                      "development",
	"LOG_LEVEL":                "info",
	"HTTP_HOST":                "localhost",
	"HTTP_PORT":                "8092",
	"HTTP_READ_HEADER_TIMEOUT": "20s",
	"PROVIDER":                 ProviderMemory,
	"SEARCH_CACHE_TTL":         "5m",
	"MONITOR_DEFAULT_INTERVAL": "1h",
	"MONITOR_MIN_INTERVAL":     "10s",
	"MONITOR_MAX_SESSIONS":     32, //nolint:gomnd
}

// Load reads optional .env files and then the process environment. Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", file, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	if cfg.Provider != ProviderMemory && cfg.Provider != ProviderAmadeus {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	if cfg.MonitorMinInterval < 0 || cfg.MonitorInterval <= 0 || cfg.MonitorInterval < cfg.MonitorMinInterval {
		return nil, fmt.Errorf(
			"%w: default %v, minimum %v",
			ErrMonitorInterval,
			cfg.MonitorInterval,
			cfg.MonitorMinInterval,
		)
	}

	return &cfg, nil
}
