package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/accessapis/geogate/internal/model"
	"github.com/accessapis/geogate/internal/repository"
)

// HeaderAPIKey is the request header carrying the presented credential.
const HeaderAPIKey = "X-API-Key"

// contextKeyRecord is the echo context key under which the admitted key
// record is stored for downstream middleware and handlers.
const contextKeyRecord = "api_key_record"

// APIKeyAuth returns an Echo middleware that validates the X-API-Key header
// against the credential store. The lookup is filtered to active records, so
// a disabled or rotated-away key is indistinguishable from an unknown one:
// both yield 401. The check is a pure read with no side effects. Store
// errors fail closed with 500 — validation never guesses.
func APIKeyAuth(keys *repository.KeyRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			presented := c.Request().Header.Get(HeaderAPIKey)
			if presented == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing api key"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			rec, err := keys.GetActiveByKey(ctx, presented)
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or inactive api key"})
			}
			if err != nil {
				c.Logger().Errorf("apikey: credential store lookup failed: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "credential store unavailable"})
			}

			c.Set(contextKeyRecord, rec)
			return next(c)
		}
	}
}

// CurrentKey returns the key record stored by APIKeyAuth, if any.
func CurrentKey(c echo.Context) (model.APIKey, bool) {
	rec, ok := c.Get(contextKeyRecord).(model.APIKey)
	return rec, ok
}
