//go:build !js

package pebble

import "errors"

var ErrIteratorInvalid = errors.New("pebble: iterator is not positioned on a key")
