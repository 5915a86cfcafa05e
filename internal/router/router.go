package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework for routing

	"github.com/accessapis/geogate/internal/handler"    // handlers implementing the endpoints
	"github.com/accessapis/geogate/internal/middleware" // admission and metering middleware
)

// RegisterRoutes registers routes that require no authentication. Currently
// only the health check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPIKey registers the key lifecycle endpoints under /apikey.
// Issuance is gated by a signed provisioning token; every other operation
// authenticates with the owner's email + password in the request body, so
// no additional middleware applies.
func RegisterAPIKey(e *echo.Echo, a *handler.APIKeyHandler, provisionSecret string) {
	g := e.Group("/apikey")
	g.POST("/create-key", a.CreateKey, middleware.ProvisionAuth(provisionSecret))
	g.POST("/rotate-key", a.RotateKey)
	g.POST("/disable-key", a.DisableKey)
	g.POST("/enable-key", a.EnableKey)
	g.POST("/delete-key", a.DeleteKey)
	g.POST("/get-api-key", a.GetAPIKey)
}

// RegisterAPI registers every metered endpoint under /api. The group-level
// chain is the admission contract and applies to all routes without
// exception: validate the presented key, check the fixed window, then meter
// the request. The Census proxy routes additionally take the response cache
// as route-level middleware so cache hits are still admitted and metered.
func RegisterAPI(e *echo.Echo, geo *handler.GeoHandler, usage *handler.UsageHandler,
	auth, limit, track, cache echo.MiddlewareFunc) {

	g := e.Group("/api")
	g.Use(auth, limit, track)

	g.GET("/usage-stats", usage.UsageStats)
	g.GET("/secure-data", geo.SecureData)

	g.GET("/state-fips", geo.StateFIPS, cache)
	g.GET("/state-names", geo.StateNames, cache)
	g.GET("/state-name-by-fips", geo.StateNameByFIPS, cache)
	g.GET("/state-fips-by-statename", geo.StateFIPSByName, cache)
	g.GET("/counties/:state_name", geo.CountiesByState, cache)
	g.GET("/cities/:state_name", geo.CitiesByState, cache)
	g.GET("/county-fips/:state_name/:county_name", geo.CountyFIPSByName, cache)
}
