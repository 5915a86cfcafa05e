package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/accessapis/geogate/internal/repository"
)

const (
	selectActiveByEmail  = "SELECT id,email,api_key,password_hash,first_name,last_name,phone,active,created_at,deactivated_at FROM api_keys WHERE email=? AND active=1 LIMIT 1"
	selectLatestInactive = "SELECT id,email,api_key,password_hash,first_name,last_name,phone,active,created_at,deactivated_at FROM api_keys WHERE email=? AND active=0 ORDER BY deactivated_at DESC, id DESC LIMIT 1"
	insertKey            = "INSERT INTO api_keys (email, api_key, password_hash, first_name, last_name, phone, active, created_at) VALUES (?,?,?,?,?,?,?,?)"
	deactivateKey        = "UPDATE api_keys SET active=0, deactivated_at=UTC_TIMESTAMP() WHERE id=?"
	activateKey          = "UPDATE api_keys SET active=1, deactivated_at=NULL WHERE id=?"
	deleteKey            = "DELETE FROM api_keys WHERE id=?"
)

func newManager(t *testing.T) (*KeyManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKeyManager(repository.NewKeyRepo(db), bcrypt.MinCost), mock
}

func keyColumns() []string {
	return []string{"id", "email", "api_key", "password_hash", "first_name", "last_name", "phone", "active", "created_at", "deactivated_at"}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func activeRow(t *testing.T, key, password string) *sqlmock.Rows {
	return sqlmock.NewRows(keyColumns()).
		AddRow(1, "alice@example.com", key, mustHash(t, password), "Alice", "A", "5551234", true, time.Now().UTC(), nil)
}

func noRows() *sqlmock.Rows { return sqlmock.NewRows(keyColumns()) }

func TestIssueIdempotentWhileActive(t *testing.T) {
	m, mock := newManager(t)
	existingKey := "aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66"

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WithArgs("alice@example.com").
		WillReturnRows(activeRow(t, existingKey, "pw123"))

	rec, created, err := m.Issue(context.Background(), "Alice@Example.com", "pw123", Profile{})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if created {
		t.Error("expected idempotent return, got a fresh key")
	}
	if rec.Key != existingKey {
		t.Errorf("expected existing key back, got %s", rec.Key)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIssueCreatesNewKey(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WithArgs("alice@example.com").
		WillReturnRows(noRows())
	mock.ExpectExec(regexp.QuoteMeta(insertKey)).
		WillReturnResult(sqlmock.NewResult(7, 1))

	rec, created, err := m.Issue(context.Background(), "alice@example.com", "pw123", Profile{FirstName: "Alice"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !created {
		t.Error("expected a fresh key")
	}
	if len(rec.Key) != 64 {
		t.Errorf("expected 64-char key, got %d", len(rec.Key))
	}
	if rec.ID != 7 || !rec.Active {
		t.Errorf("unexpected record: %+v", rec)
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("pw123")) != nil {
		t.Error("stored hash does not verify against the password")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIssueRedrawsOnceOnCollision(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(noRows())
	mock.ExpectExec(regexp.QuoteMeta(insertKey)).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry for key 'uq_api_keys_api_key'"))
	mock.ExpectExec(regexp.QuoteMeta(insertKey)).
		WillReturnResult(sqlmock.NewResult(2, 1))

	_, created, err := m.Issue(context.Background(), "alice@example.com", "pw123", Profile{})
	if err != nil {
		t.Fatalf("Issue failed after one collision: %v", err)
	}
	if !created {
		t.Error("expected a fresh key")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIssueSurfacesStoreConflict(t *testing.T) {
	m, mock := newManager(t)

	dup := errors.New("Error 1062 (23000): Duplicate entry")
	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(noRows())
	mock.ExpectExec(regexp.QuoteMeta(insertKey)).WillReturnError(dup)
	mock.ExpectExec(regexp.QuoteMeta(insertKey)).WillReturnError(dup)

	_, _, err := m.Issue(context.Background(), "alice@example.com", "pw123", Profile{})
	if !errors.Is(err, ErrStoreConflict) {
		t.Fatalf("expected ErrStoreConflict, got %v", err)
	}
}

func TestRotateIssuesReplacement(t *testing.T) {
	m, mock := newManager(t)
	oldKey := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WithArgs("alice@example.com").
		WillReturnRows(activeRow(t, oldKey, "pw123"))
	mock.ExpectExec(regexp.QuoteMeta(deactivateKey)).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertKey)).
		WillReturnResult(sqlmock.NewResult(2, 1))

	old, fresh, err := m.Rotate(context.Background(), "alice@example.com", "pw123")
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if old.Key != oldKey {
		t.Errorf("expected old key back, got %s", old.Key)
	}
	if fresh.Key == oldKey {
		t.Error("rotation returned the same key")
	}
	if fresh.PasswordHash != old.PasswordHash {
		t.Error("password hash not carried forward")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRotateWrongPasswordChangesNothing(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(activeRow(t, "deadbeef", "pw123"))

	_, _, err := m.Rotate(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	// No Exec was expected: a failed verification must not mutate state.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRotateNoActiveKey(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(noRows())

	_, _, err := m.Rotate(context.Background(), "alice@example.com", "pw123")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDisableDeactivates(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(activeRow(t, "deadbeef", "pw123"))
	mock.ExpectExec(regexp.QuoteMeta(deactivateKey)).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := m.Disable(context.Background(), "alice@example.com", "pw123"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestEnableRefusedWhileActive(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(activeRow(t, "deadbeef", "pw123"))

	_, err := m.Enable(context.Background(), "alice@example.com", "pw123")
	if !errors.Is(err, ErrActiveExists) {
		t.Fatalf("expected ErrActiveExists, got %v", err)
	}
}

func TestEnableReactivatesLatestDisabled(t *testing.T) {
	m, mock := newManager(t)
	deactivated := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(noRows())
	mock.ExpectQuery(regexp.QuoteMeta(selectLatestInactive)).
		WillReturnRows(sqlmock.NewRows(keyColumns()).
			AddRow(3, "alice@example.com", "cafebabe", mustHash(t, "pw123"), "", "", "", false, time.Now().UTC(), deactivated))
	mock.ExpectExec(regexp.QuoteMeta(activateKey)).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := m.Enable(context.Background(), "alice@example.com", "pw123")
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if !rec.Active || rec.DeactivatedAt != nil {
		t.Errorf("expected re-activated record, got %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	m, mock := newManager(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(activeRow(t, "deadbeef", "pw123"))
	mock.ExpectExec(regexp.QuoteMeta(deleteKey)).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := m.Delete(context.Background(), "alice@example.com", "pw123"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRetrieveReturnsActiveRecord(t *testing.T) {
	m, mock := newManager(t)
	key := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	mock.ExpectQuery(regexp.QuoteMeta(selectActiveByEmail)).
		WillReturnRows(activeRow(t, key, "pw123"))

	rec, err := m.Retrieve(context.Background(), "alice@example.com", "pw123")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if rec.Key != key {
		t.Errorf("expected key %s, got %s", key, rec.Key)
	}
}
