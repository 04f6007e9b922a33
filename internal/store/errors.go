package store

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrPaymentNotFound    = errors.New("payment not found")
	// ErrNotPending is returned when a conditional transition finds the
	// payment already resolved (or already linked to a checkout request).
	ErrNotPending        = errors.New("payment is no longer pending")
	ErrDownloadNotFound  = errors.New("download not found")
	ErrDownloadFulfilled = errors.New("download already fulfilled")
	ErrEmailTaken        = errors.New("email already registered")
)
