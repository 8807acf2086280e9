// Package common defines shared sentinel errors used across the sync engine.
// Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Pipeline preconditions. Any of these aborts a whole sync run.
	ErrNoTargetAlbum    = errors.New("no target album selected")
	ErrPermissionDenied = errors.New("media library access denied")
	ErrNoCredentials    = errors.New("no credentials available")

	// ErrUnauthorized means the server rejected our Basic credentials.
	// Sync halts until re-login.
	ErrUnauthorized = errors.New("unauthorized")

	// Export errors. Skip the affected asset, never the batch.
	ErrNoResource = errors.New("no resource found for asset")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
)

// ServerRejectedError reports a non-2xx upload response. The baseline retry
// policy treats all statuses uniformly; the code is carried so callers can
// special-case permanent 4xx rejections later without a wire change.
type ServerRejectedError struct {
	StatusCode int
}

func (e *ServerRejectedError) Error() string {
	return fmt.Sprintf("server rejected request: HTTP %d", e.StatusCode)
}

// DecodeError reports a response body that did not match the expected schema.
// Decoding fails closed: a missing or mismatched field produces this error,
// never a silently-empty result.
type DecodeError struct {
	Endpoint string
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %s", e.Endpoint, e.Reason)
}
