// Package projection keeps the Redis read model of each requester's upcoming
// bookings. The model is rebuilt from the booking collection at any time, so
// nothing here is authoritative.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dormly/internal/laundry/events"
	"dormly/pkg/logger"
	"dormly/pkg/model"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "laundry"

	// Bookings stay readable for this long after their day starts.
	retention = 48 * time.Hour

	rebuildAttempts = 3
)

func HistoryKey(requesterID string) string {
	return fmt.Sprintf("%s:history:%s", keyPrefix, requesterID)
}

func BookingKey(requesterID, dateKey string) string {
	return fmt.Sprintf("%s:booking:%s:%s", keyPrefix, requesterID, dateKey)
}

func UpdatesChannel(requesterID string) string {
	return HistoryKey(requesterID) + ":updates"
}

// Store holds, per requester, a sorted set of date keys scored by the day's
// local midnight and one JSON document per booking.
type Store struct {
	client *redis.Client
	log    *logger.Logger
	now    func() time.Time
}

func NewStore(client *redis.Client, log *logger.Logger) *Store {
	return &Store{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Apply folds one booking event into the read model and notifies
// subscribers. Applying the same event twice leaves the same state.
func (s *Store) Apply(ctx context.Context, event events.BookingEvent) error {
	if event.Booking == nil {
		return fmt.Errorf("event %s for %s has no booking", event.Type, event.RequesterID)
	}
	b := event.Booking
	historyKey := HistoryKey(b.RequesterID)
	bookingKey := BookingKey(b.RequesterID, b.DateKey)

	var doc []byte
	if event.Type != events.TypeBookingCancelled {
		var err error
		if doc, err = json.Marshal(b); err != nil {
			return fmt.Errorf("failed to encode booking: %w", err)
		}
	}

	cutoff := strconv.FormatInt(s.now().Add(-retention).Unix(), 10)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		switch event.Type {
		case events.TypeBookingCreated, events.TypeBookingMoved:
			pipe.ZAdd(ctx, historyKey, redis.Z{Score: float64(b.ForDate.Unix()), Member: b.DateKey})
			pipe.Set(ctx, bookingKey, doc, 0)
			pipe.ExpireAt(ctx, bookingKey, b.ForDate.Add(retention))
		case events.TypeBookingCancelled:
			pipe.ZRem(ctx, historyKey, b.DateKey)
			pipe.Del(ctx, bookingKey)
		}
		pipe.ZRemRangeByScore(ctx, historyKey, "-inf", "("+cutoff)
		pipe.Publish(ctx, UpdatesChannel(b.RequesterID), b.DateKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply %s: %w", event.Type, err)
	}
	return nil
}

// Upcoming returns up to limit bookings whose day starts at or after from,
// earliest first. limit <= 0 means all of them.
func (s *Store) Upcoming(ctx context.Context, requesterID string, from time.Time, limit int) ([]*model.Booking, error) {
	rangeBy := &redis.ZRangeBy{
		Min: strconv.FormatInt(from.Unix(), 10),
		Max: "+inf",
	}
	if limit > 0 {
		rangeBy.Count = int64(limit)
	}

	dateKeys, err := s.client.ZRangeByScore(ctx, HistoryKey(requesterID), rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(dateKeys) == 0 {
		return []*model.Booking{}, nil
	}

	keys := make([]string, len(dateKeys))
	for i, dk := range dateKeys {
		keys[i] = BookingKey(requesterID, dk)
	}
	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(docs))
	for i, raw := range docs {
		str, ok := raw.(string)
		if !ok {
			// expired or half-written entry; the next event or rebuild fixes it
			continue
		}
		var b model.Booking
		if err := json.Unmarshal([]byte(str), &b); err != nil {
			s.log.Warn("Skipping unreadable projected booking", "key", keys[i], "error", err)
			continue
		}
		bookings = append(bookings, &b)
	}
	return bookings, nil
}

// Updates signals every change published for the requester. The channel
// closes when ctx ends or the subscription drops.
func (s *Store) Updates(ctx context.Context, requesterID string) (<-chan struct{}, error) {
	pubsub := s.client.Subscribe(ctx, UpdatesChannel(requesterID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to history updates: %w", err)
	}

	signals := make(chan struct{}, 1)
	go func() {
		defer close(signals)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				select {
				case signals <- struct{}{}:
				default:
				}
			}
		}
	}()

	return signals, nil
}

// Rebuild replaces the requester's read model with bookings. It retries when
// an event lands on the same key while the rebuild is in flight.
func (s *Store) Rebuild(ctx context.Context, requesterID string, bookings []*model.Booking) error {
	historyKey := HistoryKey(requesterID)

	rebuild := func(tx *redis.Tx) error {
		stale, err := tx.ZRange(ctx, historyKey, 0, -1).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, historyKey)
			for _, dk := range stale {
				pipe.Del(ctx, BookingKey(requesterID, dk))
			}
			for _, b := range bookings {
				doc, err := json.Marshal(b)
				if err != nil {
					return fmt.Errorf("failed to encode booking: %w", err)
				}
				key := BookingKey(requesterID, b.DateKey)
				pipe.ZAdd(ctx, historyKey, redis.Z{Score: float64(b.ForDate.Unix()), Member: b.DateKey})
				pipe.Set(ctx, key, doc, 0)
				pipe.ExpireAt(ctx, key, b.ForDate.Add(retention))
			}
			pipe.Publish(ctx, UpdatesChannel(requesterID), "rebuild")
			return nil
		})
		return err
	}

	var err error
	for attempt := 1; attempt <= rebuildAttempts; attempt++ {
		err = s.client.Watch(ctx, rebuild, historyKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		s.log.Debug("History rebuild raced with an update, retrying", "requester_id", requesterID, "attempt", attempt)
	}
	if err != nil {
		return fmt.Errorf("failed to rebuild history: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
