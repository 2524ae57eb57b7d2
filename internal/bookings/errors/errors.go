package errors

import "errors"

var (
	ErrInvalidStartDatetime = errors.New("start datetime is neither RFC3339 nor a local wall time")

	ErrAppointmentMissing = errors.New("confirmed session has no appointment")
)
