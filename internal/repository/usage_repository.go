package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/accessapis/geogate/internal/model"
)

// UsageRepo maintains the per-day usage ledger in the `api_usage` table.
type UsageRepo struct{ DB *sql.DB }

func NewUsageRepo(db *sql.DB) *UsageRepo { return &UsageRepo{DB: db} }

// DayFormat is the ledger's calendar-day key format, always UTC.
const DayFormat = "2006-01-02"

// incrementStmt upserts one (api_key, day) row in a single statement: the
// insert branch seeds the row with count 1 and a one-entry endpoints object,
// the update branch bumps both the total and the per-endpoint counter.
// first_access is only ever written on row creation; last_access always.
// The update branch builds the member path with JSON_QUOTE: endpoint paths
// come from the request URL and may contain quotes or backslashes, which a
// hand-concatenated '$."..."' path would leave malformed. A malformed path
// fails the whole upsert, and since recording is best-effort that failure
// would silently drop the request from the ledger.
const incrementStmt = "INSERT INTO api_usage (api_key, day, `count`, endpoints, first_access, last_access) " +
	"VALUES (?,?,1,JSON_OBJECT(?,1),?,?) " +
	"ON DUPLICATE KEY UPDATE " +
	"`count` = `count` + 1, " +
	"endpoints = JSON_SET(endpoints, CONCAT('$.', JSON_QUOTE(?)), COALESCE(JSON_EXTRACT(endpoints, CONCAT('$.', JSON_QUOTE(?))), 0) + 1), " +
	"last_access = VALUES(last_access)"

// Increment records one request for the given key and endpoint at ts. The
// day bucket is derived from ts in UTC.
func (r *UsageRepo) Increment(ctx context.Context, apiKey, endpoint string, ts time.Time) error {
	ts = ts.UTC()
	day := ts.Format(DayFormat)
	_, err := r.DB.ExecContext(ctx, incrementStmt,
		apiKey, day, endpoint, ts, ts, endpoint, endpoint)
	return err
}

// Range returns the ledger rows for one key, newest day first. Empty start
// or end skips that bound; both are inclusive YYYY-MM-DD strings. An empty
// result is not an error.
func (r *UsageRepo) Range(ctx context.Context, apiKey, start, end string) ([]model.UsageRecord, error) {
	query := "SELECT api_key, day, `count`, endpoints, first_access, last_access FROM api_usage WHERE api_key=?"
	args := []any{apiKey}
	if start != "" {
		query += " AND day >= ?"
		args = append(args, start)
	}
	if end != "" {
		query += " AND day <= ?"
		args = append(args, end)
	}
	query += " ORDER BY day DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UsageRecord
	for rows.Next() {
		var rec model.UsageRecord
		var endpoints []byte
		if err := rows.Scan(&rec.APIKey, &rec.Day, &rec.Count, &endpoints, &rec.FirstAccess, &rec.LastAccess); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(endpoints, &rec.Endpoints); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
