package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("MODE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LOCK_TTL", "")
	t.Setenv("MAX_QUESTIONS_PER_CHAPTER", "")

	cfg := FromEnv()
	if cfg.Mode != ModeOffline {
		t.Fatalf("mode = %q, want offline", cfg.Mode)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("driver = %q, want sqlite", cfg.DBDriver)
	}
	if cfg.LockTTL != 15*time.Second {
		t.Fatalf("lock ttl = %v", cfg.LockTTL)
	}
	if cfg.MaxQuestionsPerChapter != 500 {
		t.Fatalf("max questions = %d", cfg.MaxQuestionsPerChapter)
	}
	if got := cfg.CORSOrigins(); len(got) != 2 {
		t.Fatalf("offline origins = %v", got)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("LOCK_DRIVER", "REDIS")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("PG_ADVISORY_LOCKS", "no")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	cfg := FromEnv()
	if cfg.LockDriver != "redis" {
		t.Fatalf("lock driver = %q", cfg.LockDriver)
	}
	if cfg.LockTTL != 3*time.Second {
		t.Fatalf("lock ttl = %v", cfg.LockTTL)
	}
	if cfg.PGAdvisoryLocks {
		t.Fatal("advisory locks should be disabled")
	}
	if cfg.DBMaxOpenConns != 0 {
		t.Fatalf("bad int should fall back, got %d", cfg.DBMaxOpenConns)
	}
	origins := cfg.CORSOrigins()
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Fatalf("online origins = %v", origins)
	}
}

func TestWarningsFlagDevLogins(t *testing.T) {
	t.Setenv("MODE", "")
	t.Setenv("ENABLE_LOCAL_AUTH", "")
	t.Setenv("AUTH_HMAC_SECRET", "")

	cfg := FromEnv()
	if !cfg.DevLogin() {
		t.Fatal("default config should enable dev logins")
	}
	if got := cfg.Warnings(); len(got) != 2 {
		t.Fatalf("warnings = %v, want dev login and dev key", got)
	}

	cfg.AuthSecret = "rotated"
	cfg.Mode = ModeOnline
	if cfg.DevLogin() {
		t.Fatal("online mode must not enable dev logins")
	}
	if got := cfg.Warnings(); len(got) != 0 {
		t.Fatalf("warnings = %v, want none", got)
	}

	cfg.Mode = ModeOffline
	cfg.EnableLocalAuth = false
	if cfg.DevLogin() {
		t.Fatal("dev logins need local auth")
	}
}
