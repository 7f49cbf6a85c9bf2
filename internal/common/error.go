// Package common defines shared constants and sentinel errors used across
// the StockKeeper offline engine. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Local store errors. ErrDecryptionFailed means the local key material
	// cannot decrypt persisted data (rotated key, corrupted PIN state); it is
	// deliberately distinct from ErrNotFound so callers can direct the user
	// to re-register the device instead of treating data as missing.
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrPinRequired      = errors.New("pin required")
	ErrPinInvalid       = errors.New("pin invalid")

	// Queue admission errors. Both are backpressure signals to the caller,
	// never silent drops.
	ErrQueueFull       = errors.New("queue full")
	ErrDuplicateAction = errors.New("duplicate action")

	// Remote authority errors.
	ErrUnavailable   = errors.New("server unavailable")
	ErrDeviceRevoked = errors.New("device revoked")
	ErrUnauthorized  = errors.New("unauthorized")
)
