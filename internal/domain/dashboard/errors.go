package dashboard

import "errors"

var (
	// ErrNotLoaded indicates no dataset has been loaded yet.
	ErrNotLoaded = errors.New("dataset not loaded")
	// ErrInvalidInput indicates an invalid dashboard request.
	ErrInvalidInput = errors.New("invalid dashboard input")
)
