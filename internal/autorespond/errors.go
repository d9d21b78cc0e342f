package autorespond

import "errors"

var (
	// ErrMalformedMessage marks inbound messages rejected before any policy runs.
	ErrMalformedMessage = errors.New("autorespond: malformed inbound message")

	// ErrProviderNotConfigured is returned by AI generators that have no credentials.
	// The generator answers it with the deterministic fallback instead of failing.
	ErrProviderNotConfigured = errors.New("autorespond: ai provider not configured")
)
