package services

import "errors"

var (
	// ErrMissingInput aborts a run before anything is written.
	ErrMissingInput = errors.New("missing input")
	// ErrRemoteLookup marks an item whose descriptor could not be fetched.
	ErrRemoteLookup = errors.New("remote lookup failed")
	// ErrMalformedMetadata marks a fetched descriptor that is not valid JSON.
	ErrMalformedMetadata = errors.New("malformed metadata json")
	// ErrVerificationMismatch is reported when an expected top-level file is absent.
	ErrVerificationMismatch = errors.New("verification mismatch")
)
