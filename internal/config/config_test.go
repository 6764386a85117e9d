package config

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/halls.db")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Fatalf("port = %q, want 8000", cfg.Port)
	}
	if cfg.AvailabilityPolicy != PolicyPendingAndApproved {
		t.Fatalf("policy = %q", cfg.AvailabilityPolicy)
	}
	if cfg.AccessTTLMin != 1440 {
		t.Fatalf("access ttl = %d, want 1440", cfg.AccessTTLMin)
	}
	if !slices.Equal(cfg.CORSOrigins, []string{"http://localhost:3000"}) {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
	if cfg.DSN() != "/tmp/halls.db" {
		t.Fatalf("dsn = %q", cfg.DSN())
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadRejectsUnknownPolicyAndDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AVAILABILITY_POLICY", "first_come")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "AVAILABILITY_POLICY") {
		t.Fatalf("expected policy error, got %v", err)
	}

	t.Setenv("AVAILABILITY_POLICY", "APPROVED_ONLY")
	t.Setenv("DB_DRIVER", "postgres")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DB_DRIVER") {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestMySQLDSN(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASS", "pw")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_NAME", "halls")
	t.Setenv("AVAILABILITY_POLICY", "approved_only")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := "app:pw@tcp(db:3307)/halls?charset=utf8mb4&parseTime=true&loc=UTC"
	if cfg.DSN() != want {
		t.Fatalf("dsn = %q, want %q", cfg.DSN(), want)
	}
	if cfg.AvailabilityPolicy != PolicyApprovedOnly {
		t.Fatalf("policy = %q", cfg.AvailabilityPolicy)
	}
}

func TestRateLimitShorthandsAndClamping(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c, err := LoadRateLimitConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Capacity != 5 || c.RefillTokens != 1 || c.RefillInterval != 2*time.Second {
		t.Fatalf("unexpected bucket %+v", c)
	}
	if c.TTL != 10*time.Second {
		t.Fatalf("ttl = %s, want 10s", c.TTL)
	}
}

func TestCacheMethodsAreNormalised(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")

	c, err := LoadCacheConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
		t.Fatalf("methods = %v", c.Methods)
	}
}

func TestRedisAddressPrefersHostPort(t *testing.T) {
	c := RedisConfig{Host: "cache", Port: "6380", Addr: "localhost:6379"}
	if c.Address() != "cache:6380" {
		t.Fatalf("address = %q", c.Address())
	}
	c.Port = ""
	if c.Address() != "localhost:6379" {
		t.Fatalf("address = %q", c.Address())
	}
}
