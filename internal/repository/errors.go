// Package repository implements the persistence layer over MySQL. Sentinel
// errors defined here let higher layers distinguish failure scenarios
// without inspecting driver-specific error strings themselves.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Handlers translate
// this into 401 (admission) or 404 (lifecycle) depending on the operation.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when an insert violates the unique index on
// api_keys.api_key. Callers redraw the token and retry once.
var ErrDuplicateKey = errors.New("duplicate api key")
