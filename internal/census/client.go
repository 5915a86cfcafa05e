// Package census is a thin client for the US Census Bureau data API. The
// upstream returns row-oriented JSON: an array of string arrays whose first
// row is the header. The gateway only ever reads names and FIPS codes.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Dataset paths under the API base. State lookups use the ACS 5-year
// estimates; county and place enumeration uses the 2020 decennial
// redistricting tables, matching the upstream joins the product exposes.
const (
	acsPath       = "/2023/acs/acs5"
	decennialPath = "/2020/dec/pl"
)

// State is one row of a state query: full name plus 2-digit FIPS code.
type State struct {
	Name string `json:"state_name"`
	FIPS string `json:"state_fips"`
}

// County is one row of a county query within a state.
type County struct {
	Name       string `json:"county_name"`
	StateFIPS  string `json:"state_fips"`
	CountyFIPS string `json:"county_fips"`
}

// Client queries the Census API over plain HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// query performs one GET and returns the data rows with the header stripped.
func (c *Client) query(ctx context.Context, dataset string, params url.Values) ([][]string, error) {
	u := c.BaseURL + dataset + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("census: request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("census: upstream returned status %d", res.StatusCode)
	}
	var rows [][]string
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("census: decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("census: empty response")
	}
	return rows[1:], nil // first row is the header
}

// States returns every state with its FIPS code.
func (c *Client) States(ctx context.Context) ([]State, error) {
	params := url.Values{"get": {"NAME"}, "for": {"state:*"}}
	rows, err := c.query(ctx, acsPath, params)
	if err != nil {
		return nil, err
	}
	out := make([]State, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		out = append(out, State{Name: row[0], FIPS: row[1]})
	}
	return out, nil
}

// StateNameByFIPS resolves a 2-digit FIPS code to the state name. An
// unknown code returns "" with a nil error.
func (c *Client) StateNameByFIPS(ctx context.Context, fips string) (string, error) {
	params := url.Values{"get": {"NAME"}, "for": {"state:" + fips}}
	rows, err := c.query(ctx, acsPath, params)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || len(rows[0]) < 1 {
		return "", nil
	}
	return rows[0][0], nil
}

// StateFIPS resolves a full state name (case-insensitive) to its FIPS code.
// An unknown name returns "" with a nil error.
func (c *Client) StateFIPS(ctx context.Context, stateName string) (string, error) {
	states, err := c.States(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range states {
		if strings.EqualFold(s.Name, stateName) {
			return s.FIPS, nil
		}
	}
	return "", nil
}

// Counties enumerates the counties of one state by FIPS code.
func (c *Client) Counties(ctx context.Context, stateFIPS string) ([]County, error) {
	params := url.Values{"get": {"NAME"}, "for": {"county:*"}, "in": {"state:" + stateFIPS}}
	rows, err := c.query(ctx, decennialPath, params)
	if err != nil {
		return nil, err
	}
	out := make([]County, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		out = append(out, County{Name: row[0], StateFIPS: row[1], CountyFIPS: row[2]})
	}
	return out, nil
}

// Places enumerates the incorporated places (cities) of one state. Names
// come back as "City name, State"; the state suffix is stripped.
func (c *Client) Places(ctx context.Context, stateFIPS, stateName string) ([]string, error) {
	params := url.Values{"get": {"NAME"}, "for": {"place:*"}, "in": {"state:" + stateFIPS}}
	rows, err := c.query(ctx, decennialPath, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) < 1 {
			continue
		}
		out = append(out, TrimStateSuffix(row[0], stateName))
	}
	return out, nil
}

// TrimStateSuffix drops a trailing ", <State>" qualifier from an upstream
// place or county name.
func TrimStateSuffix(name, stateName string) string {
	if i := strings.LastIndex(name, ", "); i >= 0 && strings.EqualFold(name[i+2:], stateName) {
		return name[:i]
	}
	return name
}
