package distribution

import "errors"

var (
	// ErrInvalidDistribution is returned for unknown file types, unreadable
	// archives and archives without usable metadata.
	ErrInvalidDistribution = errors.New("invalid distribution")
	// ErrSignatureExists is returned when a second signature is attached.
	ErrSignatureExists = errors.New("GPG signature already attached")
	// ErrInvalidSignature is returned for oversized or non-armoured signatures.
	ErrInvalidSignature = errors.New("invalid GPG signature")
)
