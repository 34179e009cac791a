package repository

import "errors"

var (
	// ErrRegistrantNotFound indicates no registrant has the requested ID
	ErrRegistrantNotFound = errors.New("registrant not found")

	// ErrInvalidRegistrant indicates a registrant failed validation
	ErrInvalidRegistrant = errors.New("invalid registrant")

	// ErrRepositoryUnavailable indicates the database could not be reached
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
