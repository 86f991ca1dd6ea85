package release

import "errors"

var (
	// ErrInvalidFallback is returned when the fallback mode is not recognised.
	ErrInvalidFallback = errors.New("fallback must be one of: unsigned, debug")
	// ErrStoreFileMissing is returned when a signed plan points at a keystore that does not exist.
	ErrStoreFileMissing = errors.New("keystore file does not exist or is not a regular file")
	// ErrIncompleteCredentials is returned when a signed plan lacks a key alias or password.
	ErrIncompleteCredentials = errors.New("signing credentials are incomplete")
)
