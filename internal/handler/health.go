package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports liveness for load balancers and monitoring. It sits outside
// the admission gate entirely: no key, no rate limit, no metering.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
