package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/accessapis/geogate/internal/census"
)

func ncCounties() []census.County {
	return []census.County{
		{Name: "Alamance County, North Carolina", StateFIPS: "37", CountyFIPS: "001"},
		{Name: "Anson County, North Carolina", StateFIPS: "37", CountyFIPS: "007"},
		{Name: "Wake County, North Carolina", StateFIPS: "37", CountyFIPS: "183"},
	}
}

func TestMatchCountyPrefersPrefix(t *testing.T) {
	counties := ncCounties()

	// "an" appears inside "Alamance" but anchors the start of "Anson".
	ct := matchCounty(counties, "an")
	if ct == nil || ct.CountyFIPS != "007" {
		t.Fatalf("expected the prefix match Anson (007), got %+v", ct)
	}

	ct = matchCounty(counties, "wake")
	if ct == nil || ct.CountyFIPS != "183" {
		t.Fatalf("expected Wake (183), got %+v", ct)
	}

	// No prefix candidate: fall back to the first containing name.
	ct = matchCounty(counties, "lamance")
	if ct == nil || ct.CountyFIPS != "001" {
		t.Fatalf("expected the substring fallback Alamance (001), got %+v", ct)
	}

	if ct := matchCounty(counties, "zzz"); ct != nil {
		t.Fatalf("expected no match, got %+v", ct)
	}
}

func TestCountyFIPSByNameResolvesPrefixMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("for") == "state:*":
			w.Write([]byte(`[["NAME","state"],["North Carolina","37"]]`))
		default:
			w.Write([]byte(`[["NAME","state","county"],` +
				`["Alamance County, North Carolina","37","001"],` +
				`["Anson County, North Carolina","37","007"]]`))
		}
	}))
	t.Cleanup(srv.Close)

	h := NewGeoHandler(census.New(srv.URL))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("state_name", "county_name")
	c.SetParamValues("North Carolina", "an")

	if err := h.CountyFIPSByName(c); err != nil {
		t.Fatalf("CountyFIPSByName failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["county_fips"] != "007" {
		t.Errorf("expected Anson's FIPS 007, got %v", body["county_fips"])
	}
	if body["matched_name"] != "Anson County, North Carolina" {
		t.Errorf("expected the full upstream name echoed back, got %v", body["matched_name"])
	}
}
