package models

import "errors"

// Sentinel errors for membership resolution.
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrUserNotFound   = errors.New("user not found")
)

// Sentinel errors for the sync protocol.
var (
	// ErrSnapshotNotFound indicates the tenant snapshot was never initialized.
	ErrSnapshotNotFound = errors.New("snapshot not initialized")

	// ErrStaleCursor indicates the client watermark predates the oldest
	// retained journal entry. It is a protocol signal, not a failure: the
	// client must fall back to a full snapshot download.
	ErrStaleCursor = errors.New("cursor predates retained journal window")
)

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")
