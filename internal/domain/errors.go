package domain

import "errors"

var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrUnknownTimezone   = errors.New("unknown timezone")
	ErrStoreUnavailable  = errors.New("preference store unavailable")
	ErrDispatchFailure   = errors.New("dispatch failure")
)
