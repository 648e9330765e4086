package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int // 0 = driver default

	AuthSecret     string
	AuthCookieName string

	EnableLocalAuth bool
	AdminUser       string
	AdminPassHash   string // bcrypt; empty disables admin login

	LockDriver      string // local|redis|none
	RedisURL        string
	LockTTL         time.Duration
	PGAdvisoryLocks bool

	MaxQuestionsPerChapter int

	LogLevel  string
	LogFormat string // json|text

	MetricsEnabled bool

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:           mode,
		HTTPAddr:       envOr("HTTP_ADDR", ":8787"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 0),

		AuthSecret:     envOr("AUTH_HMAC_SECRET", devAuthSecret),
		AuthCookieName: envOr("AUTH_COOKIE_NAME", "fate_token"),

		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   os.Getenv("ADMIN_PASS_HASH"),

		LockDriver:      strings.ToLower(envOr("LOCK_DRIVER", "local")),
		RedisURL:        envOr("REDIS_URL", "redis://localhost:6379/0"),
		LockTTL:         envDuration("LOCK_TTL", 15*time.Second),
		PGAdvisoryLocks: envBool("PG_ADVISORY_LOCKS", true),

		MaxQuestionsPerChapter: envInt("MAX_QUESTIONS_PER_CHAPTER", 500),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),

		MetricsEnabled: envBool("METRICS_ENABLED", true),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://interview.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:5173,http://127.0.0.1:5173"),
	}
}

const devAuthSecret = "supersecret-dev-key"

// DevLogin reports whether /auth/login issues user tokens to any name
// without a password.
func (c Config) DevLogin() bool {
	return c.EnableLocalAuth && c.Mode == ModeOffline
}

// Warnings lists settings that are unsafe outside local development.
func (c Config) Warnings() []string {
	var out []string
	if c.DevLogin() {
		out = append(out, "offline mode with ENABLE_LOCAL_AUTH: anyone can log in as any user without a password")
	}
	if c.AuthSecret == devAuthSecret {
		out = append(out, "AUTH_HMAC_SECRET is the built-in development key")
	}
	return out
}

// CORSOrigins returns the origin list for the active mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
