package signing

import "errors"

var (
	// ErrConfigRead is returned when the properties file exists but cannot be read.
	ErrConfigRead = errors.New("cannot read signing properties")
	// ErrParse is returned when the properties file content is malformed.
	ErrParse = errors.New("malformed signing properties")
	// ErrUnknownEncoding is returned for an encoding name the loader does not support.
	ErrUnknownEncoding = errors.New("unknown properties encoding")
)
