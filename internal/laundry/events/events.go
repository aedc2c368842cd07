// Package events carries committed reservation changes to the read side.
package events

import (
	"context"
	"time"

	"dormly/pkg/model"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingMoved     = "booking.moved"

	SchemaVersion = "1"
)

// BookingEvent describes one committed Book, Cancel or Move. Booking is the
// created booking, or the removed one for a cancellation.
type BookingEvent struct {
	Type           string         `json:"type"`
	RequesterID    string         `json:"requester_id"`
	DateKey        string         `json:"date_key"`
	SlotID         string         `json:"slot_id"`
	PreviousSlotID string         `json:"previous_slot_id,omitempty"`
	Booking        *model.Booking `json:"booking"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

func Created(b *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        TypeBookingCreated,
		RequesterID: b.RequesterID,
		DateKey:     b.DateKey,
		SlotID:      b.SlotID,
		Booking:     b,
		OccurredAt:  at,
	}
}

func Cancelled(b *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        TypeBookingCancelled,
		RequesterID: b.RequesterID,
		DateKey:     b.DateKey,
		SlotID:      b.SlotID,
		Booking:     b,
		OccurredAt:  at,
	}
}

func Moved(b *model.Booking, previousSlotID string, at time.Time) BookingEvent {
	return BookingEvent{
		Type:           TypeBookingMoved,
		RequesterID:    b.RequesterID,
		DateKey:        b.DateKey,
		SlotID:         b.SlotID,
		PreviousSlotID: previousSlotID,
		Booking:        b,
		OccurredAt:     at,
	}
}

// Publisher delivers events after commit. Delivery is best effort; callers
// log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, BookingEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
