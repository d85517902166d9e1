package amadeus

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultHostname = "https://test.api.amadeus.com"
	DefaultTimeout  = 10 * time.Second
	DefaultPrefix   = "AMADEUS_"
)

type Config struct {
	ClientID     string
	ClientSecret string
	Hostname     string
	Timeout      time.Duration
	// RateLimit is the outbound request budget per second. Zero disables limiting.
	RateLimit float64
}

// ConfigError lists the environment variables that have to be set.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing Amadeus credentials: " + strings.Join(e.Missing, ", ")
}

// ConfigFromEnv reads <prefix>CLIENT_ID, <prefix>CLIENT_SECRET, <prefix>HOSTNAME, <prefix>TIMEOUT
// (seconds) and <prefix>RATE_LIMIT.
func ConfigFromEnv(prefix string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.AutomaticEnv()

	v.SetDefault("hostname", DefaultHostname)
	v.SetDefault("timeout", DefaultTimeout.Seconds())
	v.SetDefault("rate_limit", 0)

	return configFromViper(v, prefix)
}

func configFromViper(v *viper.Viper, prefix string) (Config, error) {
	conf := Config{
		ClientID:     strings.TrimSpace(v.GetString("client_id")),
		ClientSecret: strings.TrimSpace(v.GetString("client_secret")),
		Hostname:     strings.TrimRight(v.GetString("hostname"), "/"),
		Timeout:      time.Duration(v.GetFloat64("timeout") * float64(time.Second)),
		RateLimit:    v.GetFloat64("rate_limit"),
	}

	var missing []string

	if conf.ClientID == "" {
		missing = append(missing, prefix+"CLIENT_ID")
	}

	if conf.ClientSecret == "" {
		missing = append(missing, prefix+"CLIENT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, &ConfigError{Missing: missing}
	}

	if conf.Hostname == "" {
		conf.Hostname = DefaultHostname
	}

	if conf.Timeout <= 0 {
		return Config{}, fmt.Errorf("%sTIMEOUT must be positive, got %v", prefix, v.Get("timeout"))
	}

	return conf, nil
}
