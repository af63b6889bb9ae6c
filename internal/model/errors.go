package model

import "errors"

// Store errors shared by every storage backend.
var (
	ErrNotFound       = errors.New("not found")
	ErrStatusConflict = errors.New("status changed concurrently")
	ErrDuplicateNIK   = errors.New("duplicate national id")
	ErrDuplicateKK    = errors.New("duplicate family card number")
	ErrAccountLinked  = errors.New("account already linked")
	ErrDuplicateSlug  = errors.New("duplicate slug")
	ErrDuplicateEmail = errors.New("duplicate email")
)
