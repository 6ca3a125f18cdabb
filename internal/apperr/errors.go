// Package apperr holds sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNotReady          = errors.New("dataset not loaded")
	ErrUnsupportedSource = errors.New("unsupported dataset source")
)
