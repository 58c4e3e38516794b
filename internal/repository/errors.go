package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateAttachment is returned when a (transaction, document)
	// pair is already attached. Concurrent attempts to attach the same
	// pair have exactly one winner; losers receive this error.
	ErrDuplicateAttachment = errors.New("document already attached to transaction")
)
