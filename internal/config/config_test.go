package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate clears key for the test and restores it afterwards, so env files can set it.
func isolate(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t, "PROVIDER", "SEARCH_CACHE_TTL", "MONITOR_DEFAULT_INTERVAL", "MONITOR_MIN_INTERVAL", "MONITOR_MAX_SESSIONS", "HTTP_READ_HEADER_TIMEOUT")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != ProviderMemory || cfg.SearchCacheTTL != 5*time.Minute || cfg.MonitorInterval != time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	if cfg.HTTPReadHeaderTimeout != 20*time.Second || cfg.MonitorMaxSessions != 32 || cfg.MonitorMinInterval != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvFileAndEnvironment(t *testing.T) {
	isolate(t, "PROVIDER", "SEARCH_CACHE_TTL", "MONITOR_MIN_INTERVAL", "MONITOR_MAX_SESSIONS")

	file := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(file, []byte("PROVIDER=Amadeus\nSEARCH_CACHE_TTL=30s\nMONITOR_MAX_SESSIONS=4\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MONITOR_DEFAULT_INTERVAL", "90s")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != ProviderAmadeus || cfg.SearchCacheTTL != 30*time.Second || cfg.MonitorMaxSessions != 4 {
		t.Fatalf("env file not applied: %+v", cfg)
	}

	if cfg.MonitorInterval != 90*time.Second {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("PROVIDER", "serpapi")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

func TestLoadRejectsBadMonitorIntervals(t *testing.T) {
	cases := []struct {
		name, def, minimum string
	}{
		{"zero default", "0s", "0s"},
		{"negative minimum", "1h", "-1s"},
		{"default below minimum", "5s", "10s"},
	}

	for _, tc := range cases {
		t.Setenv("PROVIDER", "memory")
		t.Setenv("MONITOR_DEFAULT_INTERVAL", tc.def)
		t.Setenv("MONITOR_MIN_INTERVAL", tc.minimum)

		if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); !errors.Is(err, ErrMonitorInterval) {
			t.Fatalf("%s: expected interval error, got %v", tc.name, err)
		}
	}
}
