package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/accessapis/geogate/internal/config"
)

// NewFixedWindow returns the admission rate limiter: a fixed window of
// cfg.Limit requests per key per cfg.Window. The order is check-then-
// increment — the counter is read first and a request at the limit is
// rejected before any increment, so a rejected request never consumes
// quota. The boundary (limit-th) request is admitted and counted.
//
// When the counter store errors, the policy is explicit: fail-open admits
// and logs, fail-closed rejects with 500. Neither path is silent.
func NewFixedWindow(cfg config.RateLimitConfig, counter Counter) echo.MiddlewareFunc {
	if !cfg.Enabled || counter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	windowSecs := int(cfg.Window / time.Second)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := "anon"
			if rec, ok := CurrentKey(c); ok {
				id = rec.Key
			}
			key := cfg.Prefix + ":" + id
			ctx := c.Request().Context()

			fail := func(err error) error {
				if cfg.FailOpen {
					c.Logger().Warnf("[ratelimit] counter store error for key=%s: %v; failing open", key, err)
					return next(c)
				}
				c.Logger().Errorf("[ratelimit] counter store error for key=%s: %v; failing closed", key, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rate limiter unavailable"})
			}

			current, err := counter.Get(ctx, key)
			if err != nil {
				return fail(err)
			}
			if current >= int64(cfg.Limit) {
				c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				c.Response().Header().Set("Retry-After", strconv.Itoa(windowSecs))
				if cfg.Debug {
					c.Logger().Infof("[ratelimit] block key=%s count=%d", key, current)
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": windowSecs,
				})
			}

			total, err := counter.Incr(ctx, key, cfg.Window)
			if err != nil {
				return fail(err)
			}

			remaining := int64(cfg.Limit) - total
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				c.Response().Header().Set("X-RateLimit-Key", key)
			}
			return next(c)
		}
	}
}
