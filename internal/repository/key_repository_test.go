package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/accessapis/geogate/internal/model"
)

func newKeyRepo(t *testing.T) (*KeyRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKeyRepo(db), mock
}

func TestGetActiveByKeyNotFound(t *testing.T) {
	r, mock := newKeyRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT "+keyColumns+" FROM api_keys WHERE api_key=? AND active=1 LIMIT 1")).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.GetActiveByKey(context.Background(), "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetActiveByKeyScansRecord(t *testing.T) {
	r, mock := newKeyRepo(t)
	deactivated := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT "+keyColumns+" FROM api_keys WHERE api_key=? AND active=1 LIMIT 1")).
		WithArgs("cafebabe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "api_key", "password_hash", "first_name", "last_name", "phone", "active", "created_at", "deactivated_at"}).
			AddRow(5, "bob@example.com", "cafebabe", "$2a$04$hash", "Bob", "B", "", true, time.Now().UTC(), deactivated))

	rec, err := r.GetActiveByKey(context.Background(), "cafebabe")
	if err != nil {
		t.Fatalf("GetActiveByKey failed: %v", err)
	}
	if rec.ID != 5 || rec.Email != "bob@example.com" || !rec.Active {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.DeactivatedAt == nil || !rec.DeactivatedAt.Equal(deactivated) {
		t.Errorf("deactivated_at not scanned: %v", rec.DeactivatedAt)
	}
}

func TestInsertMapsDuplicateError(t *testing.T) {
	r, mock := newKeyRepo(t)

	mock.ExpectExec("INSERT INTO api_keys").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'x' for key 'uq_api_keys_api_key'"))

	_, err := r.Insert(context.Background(), testKey())
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestInsertNormalizesEmail(t *testing.T) {
	r, mock := newKeyRepo(t)
	k := testKey()
	k.Email = "  Alice@Example.COM "

	mock.ExpectExec("INSERT INTO api_keys").
		WithArgs("alice@example.com", k.Key, k.PasswordHash, k.FirstName, k.LastName, k.Phone, k.Active, k.CreatedAt).
		WillReturnResult(sqlmock.NewResult(9, 1))

	id, err := r.Insert(context.Background(), k)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != 9 {
		t.Errorf("expected id 9, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func testKey() model.APIKey {
	return model.APIKey{
		Email:        "alice@example.com",
		Key:          "aa11bb22",
		PasswordHash: "$2a$04$hash",
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
}
