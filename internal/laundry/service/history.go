package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	laundryerrors "dormly/internal/laundry/errors"
	"dormly/internal/laundry/repository"
	"dormly/internal/laundry/validator"
	"dormly/pkg/calendar"
	"dormly/pkg/config"
	apperrors "dormly/pkg/errors"
	"dormly/pkg/model"
)

// HistoryStore is a read model of a requester's bookings. It may lag the
// transactional store.
type HistoryStore interface {
	Upcoming(ctx context.Context, requesterID string, from time.Time, limit int) ([]*model.Booking, error)
	Updates(ctx context.Context, requesterID string) (<-chan struct{}, error)
}

// HistoryRebuilder replaces a requester's read model with the given bookings.
type HistoryRebuilder interface {
	Rebuild(ctx context.Context, requesterID string, bookings []*model.Booking) error
}

type mongoHistoryStore struct {
	bookings repository.BookingRepository
}

// NewMongoHistoryStore reads history straight from the booking collection.
// Used when no Redis projection is configured.
func NewMongoHistoryStore(bookings repository.BookingRepository) HistoryStore {
	return &mongoHistoryStore{bookings: bookings}
}

func (m *mongoHistoryStore) Upcoming(ctx context.Context, requesterID string, from time.Time, limit int) ([]*model.Booking, error) {
	return m.bookings.FindUpcoming(ctx, requesterID, from, limit)
}

func (m *mongoHistoryStore) Updates(ctx context.Context, requesterID string) (<-chan struct{}, error) {
	return m.bookings.Watch(ctx, requesterID)
}

type HistoryService interface {
	Next(ctx context.Context, requesterID string) (*model.NextBooking, error)
	Watch(ctx context.Context, requesterID string) (<-chan model.HistorySnapshot, error)
	Rebuild(ctx context.Context, requesterID string) (int, error)
}

type historyService struct {
	store     HistoryStore
	rebuilder HistoryRebuilder
	bookings  repository.BookingRepository
	validator *validator.ReservationValidator
	cfg       *config.Config
	now       func() time.Time
}

// NewHistoryService serves the next-reservation summary from store. rebuilder
// may be nil when the store is the booking collection itself.
func NewHistoryService(
	store HistoryStore,
	rebuilder HistoryRebuilder,
	bookings repository.BookingRepository,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) HistoryService {
	return &historyService{
		store:     store,
		rebuilder: rebuilder,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *historyService) Next(ctx context.Context, requesterID string) (*model.NextBooking, error) {
	if err := s.validator.ValidateRequesterID(requesterID); err != nil {
		return nil, apperrors.Validation("Invalid requester", map[string]any{"error": err.Error()})
	}

	next, err := s.next(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, apperrors.NotFound("Upcoming reservation")
	}
	return next, nil
}

func (s *historyService) next(ctx context.Context, requesterID string) (*model.NextBooking, error) {
	now := s.now()
	today := calendar.Midnight(now, s.cfg.Location)

	bookings, err := s.store.Upcoming(ctx, requesterID, today, s.cfg.HistoryLimit)
	if err != nil {
		s.cfg.Log.Error("Failed to read booking history", "requester_id", requesterID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking history", err)
	}

	// the store filters by forDate already; a lagging projection can still
	// hold days that have passed
	for _, b := range bookings {
		if calendar.Midnight(b.ForDate, s.cfg.Location).Before(today) {
			continue
		}
		return &model.NextBooking{
			DateKey:   b.DateKey,
			DayLabel:  calendar.DayLabel(b.DateKey, now, s.cfg.Location),
			SlotID:    b.SlotID,
			Start:     b.Start,
			End:       b.End,
			TimeRange: calendar.FormatTimeRange(b.Start, b.End),
			ForDate:   b.ForDate,
		}, nil
	}
	return nil, nil
}

// Watch pushes the current summary and then a new one after every change to
// the requester's history. A slow reader only sees the latest snapshot.
func (s *historyService) Watch(ctx context.Context, requesterID string) (<-chan model.HistorySnapshot, error) {
	if err := s.validator.ValidateRequesterID(requesterID); err != nil {
		return nil, apperrors.Validation("Invalid requester", map[string]any{"error": err.Error()})
	}

	ctx, cancel := context.WithCancel(ctx)

	updates, err := s.store.Updates(ctx, requesterID)
	if err != nil {
		cancel()
		s.cfg.Log.Error("Failed to subscribe to booking history", "requester_id", requesterID, "error", err)
		return nil, apperrors.Unavailable("History updates")
	}

	first, err := s.next(ctx, requesterID)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan model.HistorySnapshot, 1)
	out <- model.HistorySnapshot{Next: first}

	go func() {
		defer cancel()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-updates:
				if !ok {
					return
				}
			}

			next, err := s.next(ctx, requesterID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.cfg.Log.Warn("Skipping history refresh", "requester_id", requesterID, "error", err)
				continue
			}
			offerLatest(out, model.HistorySnapshot{Next: next})
		}
	}()

	return out, nil
}

// Rebuild recomputes the requester's projection from the booking collection
// and reports how many upcoming bookings it now holds.
func (s *historyService) Rebuild(ctx context.Context, requesterID string) (int, error) {
	if err := s.validator.ValidateRequesterID(requesterID); err != nil {
		return 0, apperrors.Validation("Invalid requester", map[string]any{"error": err.Error()})
	}
	if s.rebuilder == nil {
		return 0, apperrors.Wrap(laundryerrors.ErrHistoryUnavailable, apperrors.CodeUnavailable,
			"History projection is not configured", http.StatusServiceUnavailable)
	}

	today := calendar.Midnight(s.now(), s.cfg.Location)
	bookings, err := s.bookings.FindUpcoming(ctx, requesterID, today, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to read bookings for rebuild", "requester_id", requesterID, "error", err)
		return 0, apperrors.Internal("Failed to read bookings", err)
	}

	if err := s.rebuilder.Rebuild(ctx, requesterID, bookings); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, apperrors.Timeout("History rebuild was cancelled")
		}
		s.cfg.Log.Error("Failed to rebuild history projection", "requester_id", requesterID, "error", err)
		return 0, apperrors.Internal("Failed to rebuild history projection", err)
	}

	s.cfg.Log.Info("History projection rebuilt", "requester_id", requesterID, "bookings", len(bookings))
	return len(bookings), nil
}
