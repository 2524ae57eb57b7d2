package errors

import "errors"

var (
	ErrSessionNotFound = errors.New("booking session not found")

	ErrSlotTaken = errors.New("slot already held or booked")

	ErrVersionConflict = errors.New("booking session was modified concurrently")

	ErrHoldReleased = errors.New("booking session no longer holds its slot")

	ErrAppointmentNotFound = errors.New("appointment not found")
)
