package coverage

import "errors"

var (
	// ErrInvalidAnnotationMode indicates an unknown annotation filter mode.
	ErrInvalidAnnotationMode = errors.New("invalid annotation mode")
)
