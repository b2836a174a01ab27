package homework

import "errors"

var (
	// ErrNotFound is returned when no entry exists for an owner and date.
	ErrNotFound = errors.New("homework: entry not found")
	// ErrInvalidDate is returned for input that is not a DD.MM.YYYY calendar day.
	ErrInvalidDate = errors.New("homework: invalid date")
	// ErrNothingToSave is returned when a save carries no items.
	ErrNothingToSave = errors.New("homework: nothing to save")
)
