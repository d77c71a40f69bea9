package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATA_BACKEND", "SQLITE_DB_PATH", "DATABASE_URL", "AMQP_URL", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != 8080 {
		t.Fatalf("default port: %d", cfg.Port)
	}
	if cfg.DataBackend != BackendMemory {
		t.Fatalf("default backend: %q", cfg.DataBackend)
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != "info" {
		t.Fatalf("default logging: %q %q", cfg.LogFormat, cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("addr: %q", cfg.Addr())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DATA_BACKEND", BackendSQLite)
	t.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
	cfg := Load()
	if cfg.Port != 9999 || cfg.DataBackend != BackendSQLite || cfg.SQLiteDBPath != "/tmp/test.db" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"bad port", Config{Port: 0, DataBackend: BackendMemory}},
		{"unknown backend", Config{Port: 8080, DataBackend: "redis"}},
		{"postgres without dsn", Config{Port: 8080, DataBackend: BackendPostgres}},
		{"sqlite without path", Config{Port: 8080, DataBackend: BackendSQLite}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestGetEnvIntFallback(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Fatalf("bad int should fall back: %d", cfg.Port)
	}
}
