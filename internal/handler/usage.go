package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/accessapis/geogate/internal/middleware"
	"github.com/accessapis/geogate/internal/repository"
)

// UsageHandler serves the caller's own usage ledger.
type UsageHandler struct {
	Usage *repository.UsageRepo
}

func NewUsageHandler(u *repository.UsageRepo) *UsageHandler {
	return &UsageHandler{Usage: u}
}

// UsageStats returns daily usage for the admitted key, newest day first,
// optionally bounded by start_date / end_date (inclusive, YYYY-MM-DD). The
// ledger is keyed by the presented credential, so a caller can never read
// another key's usage.
func (h *UsageHandler) UsageStats(c echo.Context) error {
	rec, ok := middleware.CurrentKey(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing api key"})
	}

	start := c.QueryParam("start_date")
	end := c.QueryParam("end_date")
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(repository.DayFormat, d); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Usage.Range(ctx, rec.Key, start, end)
	if err != nil {
		c.Logger().Errorf("usage: ledger query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if len(stats) == 0 {
		return c.JSON(http.StatusOK, echo.Map{
			"user":    rec.Email,
			"message": "No usage data found for this period",
			"usage":   []struct{}{},
		})
	}

	var total uint64
	for _, s := range stats {
		total += s.Count
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":         rec.Email,
		"total_calls":  total,
		"days_tracked": len(stats),
		"usage":        stats,
	})
}
