package domain

import "errors"

// Sentinel errors for the failure classes callers need to tell apart.
// Wrap them with fmt.Errorf("...: %w", Err...) and classify with errors.Is.
var (
	// ErrConfiguration indicates missing or invalid configuration,
	// such as an absent API key or a bad chunking parameter.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound indicates a missing input directory or a directory
	// with no supported documents.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates an operation called before Initialize.
	ErrInvalidState = errors.New("agent not initialized")

	// ErrExternalService indicates a failed embedding, vector-store or
	// chat-completion call.
	ErrExternalService = errors.New("external service error")

	// ErrIndexMismatch indicates the persisted index does not match the
	// dimension or fingerprint the caller expects.
	ErrIndexMismatch = errors.New("index mismatch")
)
