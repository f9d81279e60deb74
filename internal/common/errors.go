// Package common defines sentinel errors shared across the service layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// ErrInvalidToken covers every token rejection: wrong segment count,
	// bad base64, signature mismatch, missing fields, bad id, expired.
	// Callers must not be able to tell these cases apart.
	ErrInvalidToken = errors.New("invalid or expired link")
)
