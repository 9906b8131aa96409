package testmethod

import "errors"

var (
	// ErrInvalidInput indicates a test method that cannot be stored.
	ErrInvalidInput = errors.New("invalid test method input")
	// ErrRepositoryNotFound indicates no methods are stored for a repository.
	ErrRepositoryNotFound = errors.New("repository not found")
)
