package models

import "errors"

var (
	// ErrUnknownIdentity is returned for a heartbeat naming an identity
	// that is not (or no longer) registered. Callers log a warning and
	// carry on; a stale ack must never resurrect an entry.
	ErrUnknownIdentity = errors.New("heartbeat for unknown identity")

	// ErrRejectedConnection marks a handshake without a usable identity.
	ErrRejectedConnection = errors.New("connection rejected: missing identity")
)
