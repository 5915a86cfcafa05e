package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/accessapis/geogate/internal/queue"
	"github.com/accessapis/geogate/internal/repository"
)

// UsageTracking returns the metering middleware. After the wrapped handler
// has produced its response, one ledger upsert records the request under
// (api_key, today). Recording is best-effort telemetry: failures are logged
// and swallowed, never surfaced to the caller. A usage.recorded event is
// additionally published to the broker, fire-and-forget.
func UsageTracking(usage *repository.UsageRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			rec, ok := CurrentKey(c)
			if !ok {
				return nil // route not admitted through APIKeyAuth; nothing to meter
			}

			endpoint := c.Request().URL.Path
			now := time.Now().UTC()

			// Detached context: the response is already on the wire and a
			// client disconnect must not drop the ledger write.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := usage.Increment(ctx, rec.Key, endpoint, now); err != nil {
				c.Logger().Warnf("usage: ledger write failed for key=%s…: %v", keyPrefix(rec.Key), err)
			}

			ev := queue.UsageRecordedEvent{
				Email:      rec.Email,
				KeyPrefix:  keyPrefix(rec.Key),
				Endpoint:   endpoint,
				Day:        now.Format(repository.DayFormat),
				RecordedAt: now.Format(time.RFC3339),
			}
			go func() { _ = queue.PublishUsageRecorded(context.Background(), ev) }()

			return nil
		}
	}
}

// keyPrefix returns the first 8 characters of a token for log and event
// payloads; the full value is a credential and stays out of both.
func keyPrefix(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
