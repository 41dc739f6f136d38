package repository

import "errors"

var (
	// ErrNotFound record not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate duplicate record
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidData invalid data
	ErrInvalidData = errors.New("invalid data")

	// ErrStateConflict conditional write lost to a concurrent transition
	ErrStateConflict = errors.New("state conflict")
)
