package view

import "errors"

var (
	// ErrViewNotFound indicates the view doesn't exist or was closed.
	ErrViewNotFound = errors.New("view not found")
	// ErrInvalidInput indicates invalid view input.
	ErrInvalidInput = errors.New("invalid view input")
)
