package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/accessapis/geogate/internal/utils"
)

// ProvisionAuth returns an Echo middleware that gates key issuance behind a
// signed HS256 provisioning token presented as a Bearer credential. The
// token must carry scope=provision and validate against the shared secret.
// This replaces comparing a plaintext shared secret on every request: only
// a signature derived from the secret travels over the wire.
func ProvisionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			if scope, _ := claims["scope"].(string); scope != utils.ProvisionScope {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token not scoped for provisioning"})
			}
			return next(c)
		}
	}
}
