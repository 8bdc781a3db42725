package config

import (
	"os"
	"strings"
	"time"
)

const (
	// MaxFailedLoginAttempts is the number of consecutive password failures that locks an account.
	MaxFailedLoginAttempts = 5
	// RememberMeMultiplier extends the token lifespan of "remember me" sessions.
	RememberMeMultiplier = 10
	// DefaultPlanId is assigned to tenants that sign up without choosing a plan.
	DefaultPlanId = "basic"
)

// AccessTokenLifespan is the base session lifetime.
//
// Set via env:
// - ACCESS_TOKEN_EXPIRE_MINUTES (default 30)
func AccessTokenLifespan() time.Duration {
	minutes := intFromEnv("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

// CacheLifespan bounds how long tenant product lists stay in redis.
//
// Set via env:
// - CACHE_LIFESPAN_MINUTES (default 60)
func CacheLifespan() time.Duration {
	minutes := intFromEnv("CACHE_LIFESPAN_MINUTES", 60)
	if minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

// PhoneRegion is the default region used to parse contact phone numbers without a +country prefix.
func PhoneRegion() string {
	return strings.ToUpper(stringFromEnv("PHONE_REGION", "IN"))
}

// OutboxEnabled turns on the sale event dispatcher.
//
// Set via env:
// - OUTBOX_ENABLED=true (requires PUBSUB_TOPIC and a Pub/Sub project)
func OutboxEnabled() bool {
	return envBool("OUTBOX_ENABLED")
}

// SkipMigrations disables AutoMigrate on startup.
func SkipMigrations() bool {
	return envBool("SKIP_MIGRATIONS")
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// RateLimitEnabled enables the redis-backed limiter on auth endpoints.
//
// Env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=30
func RateLimitEnabled() bool {
	return envBool("RATE_LIMIT_ENABLED")
}

func RateLimitWindow() time.Duration {
	sec := intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)
	if sec <= 0 {
		sec = 60
	}
	return time.Duration(sec) * time.Second
}

func RateLimitMaxRequests() int64 {
	n := intFromEnv("RATE_LIMIT_MAX_REQUESTS", 30)
	if n <= 0 {
		n = 30
	}
	return int64(n)
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
