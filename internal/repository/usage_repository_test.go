package repository

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newUsageRepo(t *testing.T) (*UsageRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUsageRepo(db), mock
}

func TestIncrementUpsertsDayBucket(t *testing.T) {
	r, mock := newUsageRepo(t)
	ts := time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(incrementStmt)).
		WithArgs("cafebabe", "2026-08-28", "/api/secure-data", ts, ts, "/api/secure-data", "/api/secure-data").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Increment(context.Background(), "cafebabe", "/api/secure-data", ts); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIncrementBucketsInUTC(t *testing.T) {
	r, mock := newUsageRepo(t)
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2026, 8, 28, 23, 30, 0, 0, loc)

	mock.ExpectExec(regexp.QuoteMeta(incrementStmt)).
		WithArgs("cafebabe", "2026-08-29", "/api/state-fips", ts.UTC(), ts.UTC(), "/api/state-fips", "/api/state-fips").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Increment(context.Background(), "cafebabe", "/api/state-fips", ts); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIncrementHandlesQuotedEndpointPath(t *testing.T) {
	r, mock := newUsageRepo(t)
	ts := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	// URL decoding can put a double quote into the path (e.g. /counties/a%22b).
	endpoint := `/api/counties/a"b`

	mock.ExpectExec(regexp.QuoteMeta(incrementStmt)).
		WithArgs("cafebabe", "2026-08-28", endpoint, ts, ts, endpoint, endpoint).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Increment(context.Background(), "cafebabe", endpoint, ts); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}

	// The endpoint travels only as a bind parameter; the statement must build
	// the member path with JSON_QUOTE so a quoted path cannot malform it.
	if !strings.Contains(incrementStmt, "JSON_QUOTE(?)") {
		t.Error("update branch does not quote the endpoint path with JSON_QUOTE")
	}
	if strings.Contains(incrementStmt, `'$."'`) {
		t.Error("update branch concatenates raw quotes around the endpoint path")
	}
}

func usageColumns() []string {
	return []string{"api_key", "day", "count", "endpoints", "first_access", "last_access"}
}

func TestRangeDecodesEndpoints(t *testing.T) {
	r, mock := newUsageRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .* FROM api_usage WHERE api_key=\\? ORDER BY day DESC").
		WithArgs("cafebabe").
		WillReturnRows(sqlmock.NewRows(usageColumns()).
			AddRow("cafebabe", "2026-08-28", 3, []byte(`{"/api/secure-data":2,"/api/state-fips":1}`), now, now).
			AddRow("cafebabe", "2026-08-27", 1, []byte(`{"/api/usage-stats":1}`), now, now))

	recs, err := r.Range(context.Background(), "cafebabe", "", "")
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Day != "2026-08-28" {
		t.Errorf("expected newest day first, got %s", recs[0].Day)
	}
	var sum uint64
	for _, n := range recs[0].Endpoints {
		sum += n
	}
	if sum != recs[0].Count {
		t.Errorf("endpoint counts sum to %d, total is %d", sum, recs[0].Count)
	}
}

func TestRangeAppliesDateBounds(t *testing.T) {
	r, mock := newUsageRepo(t)

	mock.ExpectQuery("SELECT .* FROM api_usage WHERE api_key=\\? AND day >= \\? AND day <= \\? ORDER BY day DESC").
		WithArgs("cafebabe", "2026-08-01", "2026-08-28").
		WillReturnRows(sqlmock.NewRows(usageColumns()))

	recs, err := r.Range(context.Background(), "cafebabe", "2026-08-01", "2026-08-28")
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected empty result, got %d records", len(recs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
