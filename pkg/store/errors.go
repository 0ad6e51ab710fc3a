package store

import "errors"

var (
	ErrAlreadyOpen       = errors.New("store: location is already open")
	ErrInvalidLocation   = errors.New("store: invalid location")
	ErrInvalidName       = errors.New("store: invalid collection name")
	ErrInvalidKey        = errors.New("store: invalid key")
	ErrInvalidIndexValue = errors.New("store: invalid index value")
)
