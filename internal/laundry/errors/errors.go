package errors

import "errors"

var (
	ErrSlotNotFound = errors.New("slot not found")

	ErrBookingNotFound = errors.New("booking not found")

	ErrSlotFull = errors.New("slot is full")

	ErrAlreadyBooked = errors.New("requester already holds a booking for this day")

	ErrInvalidDateKey = errors.New("invalid date key")

	ErrCapacityBelowBooked = errors.New("capacity cannot be lower than the current booked count")

	ErrHistoryUnavailable = errors.New("history projection is not configured")
)
