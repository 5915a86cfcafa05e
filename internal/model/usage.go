package model

import "time"

// UsageRecord is one row of the usage ledger: request totals for a single
// API key on a single UTC calendar day. Endpoints breaks the total down per
// request path; the per-path counts always sum to Count. Rows are created
// lazily on the first request of the day and never deleted by the gateway.
type UsageRecord struct {
	APIKey      string            `json:"-"`
	Day         string            `json:"date"` // YYYY-MM-DD, UTC
	Count       uint64            `json:"count"`
	Endpoints   map[string]uint64 `json:"endpoints"`
	FirstAccess time.Time         `json:"first_access"`
	LastAccess  time.Time         `json:"last_access"`
}
