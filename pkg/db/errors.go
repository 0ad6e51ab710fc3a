package db

import "errors"

var (
	ErrNotFound    = errors.New("db: key not found")
	ErrClosed      = errors.New("db: backend is closed")
	ErrCorrupt     = errors.New("db: stored value failed integrity check")
	ErrUnsupported = errors.New("db: operation not supported by this backend")
)
