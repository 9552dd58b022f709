// Package domain provides shared domain-level sentinel errors and helpers.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the operation would break referential integrity
// or collides with an existing record.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates that caller input was rejected before persisting.
var ErrValidation = errors.New("validation failed")
