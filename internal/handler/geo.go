package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/accessapis/geogate/internal/census"
	"github.com/accessapis/geogate/internal/middleware"
)

// GeoHandler re-exposes the Census Bureau geographic lookups behind the
// admission gate. These handlers hold no state of their own: they forward to
// the upstream API and reshape its row-oriented responses.
type GeoHandler struct {
	Census *census.Client
}

func NewGeoHandler(c *census.Client) *GeoHandler {
	return &GeoHandler{Census: c}
}

// SecureData is the admission smoke endpoint: reaching it proves the key is
// valid and within rate limits.
func (h *GeoHandler) SecureData(c echo.Context) error {
	rec, _ := middleware.CurrentKey(c)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Hello " + rec.Email + ", your API key is valid and within rate limits!",
	})
}

// StateFIPS lists every state with its FIPS code.
func (h *GeoHandler) StateFIPS(c echo.Context) error {
	states, err := h.Census.States(c.Request().Context())
	if err != nil {
		return upstreamError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"states": states})
}

// StateNames lists the state names only.
func (h *GeoHandler) StateNames(c echo.Context) error {
	states, err := h.Census.States(c.Request().Context())
	if err != nil {
		return upstreamError(c, err)
	}
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, s.Name)
	}
	return c.JSON(http.StatusOK, names)
}

// StateNameByFIPS resolves ?state=06 to a state name.
func (h *GeoHandler) StateNameByFIPS(c echo.Context) error {
	fips := c.QueryParam("state")
	if fips == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "state query parameter required"})
	}
	name, err := h.Census.StateNameByFIPS(c.Request().Context(), fips)
	if err != nil {
		return upstreamError(c, err)
	}
	if name == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "state not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"state_name": name, "state_fips": fips})
}

// StateFIPSByName resolves ?state_name=California to a FIPS code.
func (h *GeoHandler) StateFIPSByName(c echo.Context) error {
	name := c.QueryParam("state_name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "state_name query parameter required"})
	}
	fips, err := h.Census.StateFIPS(c.Request().Context(), name)
	if err != nil {
		return upstreamError(c, err)
	}
	if fips == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "state not found"})
	}
	return c.JSON(http.StatusOK, []echo.Map{{"state_name": name, "state_fips": fips}})
}

// CountiesByState lists the counties of :state_name.
func (h *GeoHandler) CountiesByState(c echo.Context) error {
	stateName := c.Param("state_name")
	ctx := c.Request().Context()

	fips, err := h.Census.StateFIPS(ctx, stateName)
	if err != nil {
		return upstreamError(c, err)
	}
	if fips == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "state not found"})
	}
	counties, err := h.Census.Counties(ctx, fips)
	if err != nil {
		return upstreamError(c, err)
	}
	names := make([]string, 0, len(counties))
	for _, ct := range counties {
		names = append(names, census.TrimStateSuffix(ct.Name, stateName))
	}
	return c.JSON(http.StatusOK, echo.Map{"state": titleCase(stateName), "counties": names})
}

// CitiesByState lists the incorporated places of :state_name.
func (h *GeoHandler) CitiesByState(c echo.Context) error {
	stateName := c.Param("state_name")
	ctx := c.Request().Context()

	fips, err := h.Census.StateFIPS(ctx, stateName)
	if err != nil {
		return upstreamError(c, err)
	}
	if fips == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "state not found"})
	}
	cities, err := h.Census.Places(ctx, fips, stateName)
	if err != nil {
		return upstreamError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"state": stateName, "cities": cities})
}

// CountyFIPSByName resolves :state_name/:county_name to a county FIPS code.
// Upstream names carry suffixes like "County" or "Parish", so matching is
// case-insensitive and fuzzy: a county whose name starts with the query wins
// over one that merely contains it somewhere. The response echoes the full
// upstream name as matched_name so callers can see what the query resolved to.
func (h *GeoHandler) CountyFIPSByName(c echo.Context) error {
	stateName := c.Param("state_name")
	countyName := c.Param("county_name")
	ctx := c.Request().Context()

	fips, err := h.Census.StateFIPS(ctx, stateName)
	if err != nil {
		return upstreamError(c, err)
	}
	if fips == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "state not found"})
	}
	counties, err := h.Census.Counties(ctx, fips)
	if err != nil {
		return upstreamError(c, err)
	}
	if ct := matchCounty(counties, countyName); ct != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"state":        stateName,
			"county":       countyName,
			"county_fips":  ct.CountyFIPS,
			"matched_name": ct.Name,
		})
	}
	return c.JSON(http.StatusNotFound, echo.Map{"error": "county not found in the state"})
}

// matchCounty picks the county for a query: the first name with the query as
// a prefix, else the first name containing it.
func matchCounty(counties []census.County, query string) *census.County {
	q := strings.ToLower(query)
	var contains *census.County
	for i := range counties {
		name := strings.ToLower(counties[i].Name)
		if strings.HasPrefix(name, q) {
			return &counties[i]
		}
		if contains == nil && strings.Contains(name, q) {
			contains = &counties[i]
		}
	}
	return contains
}

func upstreamError(c echo.Context, err error) error {
	c.Logger().Errorf("geo: upstream request failed: %v", err)
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch data from upstream"})
}

// titleCase upper-cases the first letter of each word, enough for state
// names ("new york" -> "New York").
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
