package types

import "errors"

// Parsing errors for mission fields.
var (
	// ErrUnknownStatus is returned when a status label is outside the closed set
	ErrUnknownStatus = errors.New("unknown mission status")

	// ErrUnknownColumn is returned when a column name is not part of the mission schema
	ErrUnknownColumn = errors.New("unknown column")
)
