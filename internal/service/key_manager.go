// Package service holds the API-key lifecycle logic. Every mutating or
// retrieval operation is gated by password verification: the token itself,
// once lost, cannot otherwise be recovered, so password possession is the
// sole recovery credential.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/accessapis/geogate/internal/model"
	"github.com/accessapis/geogate/internal/repository"
	"github.com/accessapis/geogate/internal/utils"
)

// Sentinel errors returned by KeyManager operations. Handlers map them to
// HTTP statuses (401/404/409/500).
var (
	// ErrNotFound means the owner has no record matching the operation
	// (no active key for rotate/disable/delete, no disabled key for enable).
	ErrNotFound = errors.New("no matching api key")
	// ErrUnauthorized means password verification failed. No state changes.
	ErrUnauthorized = errors.New("invalid credentials")
	// ErrActiveExists means Enable was called while the owner already has an
	// active key; at most one key per owner may be active at a time.
	ErrActiveExists = errors.New("owner already has an active api key")
	// ErrStoreConflict means a token collision survived the retry budget.
	// Not expected in normal operation.
	ErrStoreConflict = errors.New("api key conflict")
)

// issueAttempts bounds the insert loop: one initial draw plus one redraw on
// a duplicate-key race. The source retried by unbounded recursion; a bounded
// loop caps the damage under pathological collision rates.
const issueAttempts = 2

// Profile carries the opaque owner metadata stored with a key. No
// validation beyond presence is applied.
type Profile struct {
	FirstName string
	LastName  string
	Phone     string
}

// KeyManager issues, rotates, enables, disables, deletes and retrieves API
// keys against the credential store.
type KeyManager struct {
	Keys *repository.KeyRepo
	Cost int // bcrypt cost
}

func NewKeyManager(keys *repository.KeyRepo, cost int) *KeyManager {
	return &KeyManager{Keys: keys, Cost: cost}
}

// Issue creates a new active key for the owner, or returns the existing one
// when the owner already holds an active key. The second return value is
// false for the idempotent case. The password is hashed with bcrypt before
// storage; the plaintext is never persisted.
func (m *KeyManager) Issue(ctx context.Context, email, password string, p Profile) (model.APIKey, bool, error) {
	existing, err := m.Keys.GetActiveByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.APIKey{}, false, err
	}

	hash, err := utils.HashPassword(password, m.Cost)
	if err != nil {
		return model.APIKey{}, false, err
	}

	rec, err := m.insertFresh(ctx, email, hash, p)
	if err != nil {
		return model.APIKey{}, false, err
	}
	return rec, true, nil
}

// Rotate deactivates the owner's current key and issues a replacement that
// carries forward the password hash and profile. The two steps are not one
// atomic swap: a crash in between leaves the owner with zero active keys,
// which denies rather than double-admits.
func (m *KeyManager) Rotate(ctx context.Context, email, password string) (old, fresh model.APIKey, err error) {
	cur, err := m.authenticate(ctx, email, password)
	if err != nil {
		return model.APIKey{}, model.APIKey{}, err
	}
	if err := m.Keys.Deactivate(ctx, cur.ID); err != nil {
		return model.APIKey{}, model.APIKey{}, err
	}
	fresh, err = m.insertFresh(ctx, cur.Email, cur.PasswordHash,
		Profile{FirstName: cur.FirstName, LastName: cur.LastName, Phone: cur.Phone})
	if err != nil {
		return model.APIKey{}, model.APIKey{}, err
	}
	return cur, fresh, nil
}

// Disable verifies the password and flips the active key to inactive.
func (m *KeyManager) Disable(ctx context.Context, email, password string) (model.APIKey, error) {
	cur, err := m.authenticate(ctx, email, password)
	if err != nil {
		return model.APIKey{}, err
	}
	if err := m.Keys.Deactivate(ctx, cur.ID); err != nil {
		return model.APIKey{}, err
	}
	return cur, nil
}

// Enable re-activates the owner's most recently disabled key. Verification
// runs against that disabled record. Refused when an active key already
// exists so the one-active-key-per-owner invariant holds.
func (m *KeyManager) Enable(ctx context.Context, email, password string) (model.APIKey, error) {
	if _, err := m.Keys.GetActiveByEmail(ctx, email); err == nil {
		return model.APIKey{}, ErrActiveExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.APIKey{}, err
	}

	rec, err := m.Keys.GetLatestInactiveByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, err
	}
	if !utils.VerifyPassword(rec.PasswordHash, password) {
		return model.APIKey{}, ErrUnauthorized
	}
	if err := m.Keys.Activate(ctx, rec.ID); err != nil {
		return model.APIKey{}, err
	}
	rec.Active = true
	rec.DeactivatedAt = nil
	return rec, nil
}

// Delete verifies the password and removes the active record outright.
func (m *KeyManager) Delete(ctx context.Context, email, password string) (model.APIKey, error) {
	cur, err := m.authenticate(ctx, email, password)
	if err != nil {
		return model.APIKey{}, err
	}
	if err := m.Keys.Delete(ctx, cur.ID); err != nil {
		return model.APIKey{}, err
	}
	return cur, nil
}

// Retrieve is the out-of-band key recovery path: read-only, same
// verification contract as the mutating operations.
func (m *KeyManager) Retrieve(ctx context.Context, email, password string) (model.APIKey, error) {
	return m.authenticate(ctx, email, password)
}

// authenticate loads the owner's active record and verifies the password.
func (m *KeyManager) authenticate(ctx context.Context, email, password string) (model.APIKey, error) {
	cur, err := m.Keys.GetActiveByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, err
	}
	if !utils.VerifyPassword(cur.PasswordHash, password) {
		return model.APIKey{}, ErrUnauthorized
	}
	return cur, nil
}

// insertFresh draws a token and inserts an active record, redrawing once if
// the unique index reports a collision.
func (m *KeyManager) insertFresh(ctx context.Context, email, passwordHash string, p Profile) (model.APIKey, error) {
	for attempt := 0; attempt < issueAttempts; attempt++ {
		key, err := utils.NewAPIKey()
		if err != nil {
			return model.APIKey{}, err
		}
		rec := model.APIKey{
			Email:        repository.NormalizeEmail(email),
			Key:          key,
			PasswordHash: passwordHash,
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			Phone:        p.Phone,
			Active:       true,
			CreatedAt:    time.Now().UTC(),
		}
		id, err := m.Keys.Insert(ctx, rec)
		if errors.Is(err, repository.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return model.APIKey{}, err
		}
		rec.ID = id
		return rec, nil
	}
	return model.APIKey{}, ErrStoreConflict
}
