package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/accessapis/geogate/internal/model"
)

const keyColumns = "id,email,api_key,password_hash,first_name,last_name,phone,active,created_at,deactivated_at"

// KeyRepo persists issued API keys in the `api_keys` table.
type KeyRepo struct{ DB *sql.DB }

func NewKeyRepo(db *sql.DB) *KeyRepo { return &KeyRepo{DB: db} }

// NormalizeEmail lower-cases and trims an owner identity so that lookups and
// inserts agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanKey(row *sql.Row) (model.APIKey, error) {
	var k model.APIKey
	var deactivated sql.NullTime
	err := row.Scan(&k.ID, &k.Email, &k.Key, &k.PasswordHash,
		&k.FirstName, &k.LastName, &k.Phone, &k.Active, &k.CreatedAt, &deactivated)
	if err == sql.ErrNoRows {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, err
	}
	if deactivated.Valid {
		t := deactivated.Time
		k.DeactivatedAt = &t
	}
	return k, nil
}

// GetActiveByEmail fetches the owner's single active key record.
func (r *KeyRepo) GetActiveByEmail(ctx context.Context, email string) (model.APIKey, error) {
	return scanKey(r.DB.QueryRowContext(ctx,
		"SELECT "+keyColumns+" FROM api_keys WHERE email=? AND active=1 LIMIT 1",
		NormalizeEmail(email)))
}

// GetActiveByKey fetches an active record by its token value. Inactive rows
// are deliberately invisible here: a disabled or rotated-away key must look
// exactly like an unknown one to the admission path.
func (r *KeyRepo) GetActiveByKey(ctx context.Context, key string) (model.APIKey, error) {
	return scanKey(r.DB.QueryRowContext(ctx,
		"SELECT "+keyColumns+" FROM api_keys WHERE api_key=? AND active=1 LIMIT 1",
		key))
}

// GetLatestInactiveByEmail fetches the owner's most recently deactivated
// record, used by Enable to verify the password before re-activation.
func (r *KeyRepo) GetLatestInactiveByEmail(ctx context.Context, email string) (model.APIKey, error) {
	return scanKey(r.DB.QueryRowContext(ctx,
		"SELECT "+keyColumns+" FROM api_keys WHERE email=? AND active=0 ORDER BY deactivated_at DESC, id DESC LIMIT 1",
		NormalizeEmail(email)))
}

// Insert stores a new key record and returns its ID. A violation of the
// unique index on api_key surfaces as ErrDuplicateKey.
func (r *KeyRepo) Insert(ctx context.Context, k model.APIKey) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO api_keys (email, api_key, password_hash, first_name, last_name, phone, active, created_at) VALUES (?,?,?,?,?,?,?,?)",
		NormalizeEmail(k.Email), k.Key, k.PasswordHash, k.FirstName, k.LastName, k.Phone, k.Active, k.CreatedAt)
	if err != nil {
		// MySQL error 1062: duplicate entry for a unique index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrDuplicateKey
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Deactivate flips a record to inactive and stamps deactivated_at.
func (r *KeyRepo) Deactivate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE api_keys SET active=0, deactivated_at=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// Activate re-enables a previously disabled record.
func (r *KeyRepo) Activate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE api_keys SET active=1, deactivated_at=NULL WHERE id=?", id)
	return err
}

// Delete removes a record outright.
func (r *KeyRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM api_keys WHERE id=?", id)
	return err
}
