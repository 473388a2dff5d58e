package manifest

import "errors"

var (
	// ErrIncompatibleVersion is returned when the manifest version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible manifest version")

	// ErrNotFound is returned when no manifest has been saved yet.
	ErrNotFound = errors.New("manifest not found")

	// ErrUnknownCodec is returned when a manifest's extension matches no codec.
	ErrUnknownCodec = errors.New("unknown manifest codec")
)
