package model

import "time"

// APIKey represents one issued credential as stored in the `api_keys` table.
// An owner (identified by email) may have many historical rows but at most
// one with Active=true at any instant; rotation deactivates the old row and
// inserts a fresh one. The token itself is never recoverable without the
// owner's password, so PasswordHash gates every lifecycle operation.
//
// Fields:
//  ID            – primary key identifier.
//  Email         – owner identity, normalized to lower case.
//  Key           – 64-hex-char token, globally unique across all rows.
//  PasswordHash  – bcrypt hash of the owner's password.
//  FirstName,
//  LastName,
//  Phone         – opaque profile metadata carried through rotation.
//  Active        – whether this row admits requests.
//  CreatedAt     – timestamp of insertion.
//  DeactivatedAt – when the row was disabled or superseded (null while active).
type APIKey struct {
	ID            uint64     // api_keys.id
	Email         string     // api_keys.email
	Key           string     // api_keys.api_key
	PasswordHash  string     // api_keys.password_hash
	FirstName     string     // api_keys.first_name
	LastName      string     // api_keys.last_name
	Phone         string     // api_keys.phone
	Active        bool       // api_keys.active
	CreatedAt     time.Time  // api_keys.created_at
	DeactivatedAt *time.Time // api_keys.deactivated_at (nullable)
}
