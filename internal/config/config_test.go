package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{
		"PORT", "GIN_MODE", "SESSION_SECRET", "SESSION_STORE", "DATABASE_DRIVER",
		"DATABASE_DSN", "BCRYPT_COST", "SESSION_MAX_LIFETIME_MINUTES", "SESSION_IDLE_TIMEOUT_MINUTES",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.SessionStore != SessionStoreCookie {
		t.Fatalf("unexpected session store: %s", cfg.SessionStore)
	}
	if cfg.DatabaseDriver != DriverSQLite {
		t.Fatalf("unexpected driver: %s", cfg.DatabaseDriver)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("unexpected bcrypt cost: %d", cfg.BcryptCost)
	}
	if cfg.SessionIdleTimeout != 30*time.Minute {
		t.Fatalf("unexpected idle timeout: %s", cfg.SessionIdleTimeout)
	}
	if !cfg.GeneratedSecret || len(cfg.SessionSecret) < MinSessionSecretLength {
		t.Fatalf("expected generated secret, got %q", cfg.SessionSecret)
	}
}

func TestLoadReleaseRequiresSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GIN_MODE", "release")
	t.Setenv("SESSION_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Fatalf("expected SESSION_SECRET error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GinMode:            "debug",
			SessionStore:       SessionStoreCookie,
			DatabaseDriver:     DriverMemory,
			BcryptCost:         10,
			SessionMaxLifetime: time.Hour,
			SessionIdleTimeout: time.Minute,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"unknown store", func(c *Config) { c.SessionStore = "memcached" }, false},
		{"redis without url", func(c *Config) { c.SessionStore = SessionStoreRedis }, false},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "oracle" }, false},
		{"sqlite without dsn", func(c *Config) { c.DatabaseDriver = DriverSQLite }, false},
		{"cost too low", func(c *Config) { c.BcryptCost = 2 }, false},
		{"cost too high", func(c *Config) { c.BcryptCost = 40 }, false},
		{"short release secret", func(c *Config) {
			c.GinMode = "release"
			c.SessionSecret = "short"
		}, false},
		{"release secret", func(c *Config) {
			c.GinMode = "release"
			c.SessionSecret = strings.Repeat("s", MinSessionSecretLength)
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: "http://a.example, http://b.example,,"}
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}

// chdir changes the working directory for the duration of the test
// (go1.21 stand-in for testing.T.Chdir).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
