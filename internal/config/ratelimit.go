package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig describes the fixed-window limiter applied to every gated
// request. Limit requests are admitted per API key per Window; the counter
// lives in Redis under Prefix. FailOpen controls what happens when the
// counter store is unreachable: true admits the request (and logs it), false
// rejects it with an internal error.
type RateLimitConfig struct {
	Enabled  bool
	Limit    int
	Window   time.Duration
	FailOpen bool
	Prefix   string
	Debug    bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* environment variables and
// returns a sanitized config. Defaults match the product contract:
// 10 requests per key per 60 seconds, fail-open.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:  envBool("RATE_LIMIT_ENABLED", true),
		Limit:    envInt("RATE_LIMIT_LIMIT", 10),
		Window:   envDur("RATE_LIMIT_WINDOW", 60*time.Second),
		FailOpen: envBool("RATE_LIMIT_FAIL_OPEN", true),
		Prefix:   envStr("RATE_LIMIT_PREFIX", "rate_limit"),
		Debug:    envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Second
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
