package events

import (
	"context"
	"fmt"

	"dormly/pkg/kafka"
)

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

// NewKafkaPublisher publishes events keyed by requester id, so one
// requester's events stay ordered within a partition.
func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.RequesterID).
		WithEventType(event.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithValue(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return p.producer.Publish(ctx, msg.Build())
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
