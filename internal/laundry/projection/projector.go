package projection

import (
	"context"
	"errors"

	"dormly/internal/laundry/events"
	"dormly/pkg/kafka"
	"dormly/pkg/logger"
)

var errMalformedEvent = errors.New("malformed booking event")

// Projector applies booking events from the topic to the store.
type Projector struct {
	store *Store
	log   *logger.Logger
}

func NewProjector(store *Store, log *logger.Logger) *Projector {
	return &Projector{store: store, log: log}
}

// Handle is a kafka.MessageHandler. Undecodable events are permanent failures
// and go straight to the DLQ; store failures are retried.
func (p *Projector) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode booking event", err)
	}
	if event.Booking == nil || event.RequesterID == "" || event.DateKey == "" {
		return kafka.NewPermanentError("booking event is incomplete", errMalformedEvent)
	}

	switch event.Type {
	case events.TypeBookingCreated, events.TypeBookingCancelled, events.TypeBookingMoved:
	default:
		p.log.Warn("Ignoring unknown booking event type",
			"type", event.Type,
			"event_id", msg.GetEventID(),
		)
		return nil
	}

	if err := p.store.Apply(ctx, event); err != nil {
		return kafka.NewTransientError("failed to project booking event", err)
	}

	p.log.Debug("Booking event projected",
		"type", event.Type,
		"requester_id", event.RequesterID,
		"date_key", event.DateKey,
	)
	return nil
}
