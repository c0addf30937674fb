package internal

import "errors"

// Error classes. Callers match with errors.Is; the wrapped message carries the detail.
var (
	ErrParse        = errors.New("parse error")
	ErrValidation   = errors.New("validation error")
	ErrInvalidCycle = errors.New("invalid billing cycle")
	ErrInvalidDate  = errors.New("invalid date")
	ErrIndex        = errors.New("record index out of range")
	ErrIO           = errors.New("i/o failure")
)
