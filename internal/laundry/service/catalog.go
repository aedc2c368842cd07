package service

import (
	"context"
	"errors"
	"time"

	laundryerrors "dormly/internal/laundry/errors"
	"dormly/internal/laundry/repository"
	"dormly/internal/laundry/validator"
	"dormly/pkg/availability"
	"dormly/pkg/calendar"
	"dormly/pkg/config"
	apperrors "dormly/pkg/errors"
	"dormly/pkg/model"
)

// CatalogService is the read side of a day: its slots projected for one
// requester. Nothing here writes.
type CatalogService interface {
	Days(ctx context.Context) []model.BookableDay
	GetDay(ctx context.Context, dateKey, requesterID string) (*model.DayCatalog, error)
	WatchDay(ctx context.Context, dateKey, requesterID string) (<-chan *model.DayCatalog, error)
}

type catalogService struct {
	slots     repository.SlotRepository
	bookings  repository.BookingRepository
	validator *validator.ReservationValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewCatalogService(
	slots repository.SlotRepository,
	bookings repository.BookingRepository,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) CatalogService {
	return &catalogService{
		slots:     slots,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *catalogService) Days(ctx context.Context) []model.BookableDay {
	return calendar.Window(s.now(), s.cfg.Location, s.cfg.BookingWindowDays)
}

func (s *catalogService) GetDay(ctx context.Context, dateKey, requesterID string) (*model.DayCatalog, error) {
	if err := s.validate(dateKey, requesterID); err != nil {
		return nil, err
	}
	return s.read(ctx, dateKey, requesterID)
}

func (s *catalogService) read(ctx context.Context, dateKey, requesterID string) (*model.DayCatalog, error) {
	slots, err := s.slots.FindByDate(ctx, dateKey)
	if err != nil {
		s.cfg.Log.Error("Failed to read slots", "date_key", dateKey, "error", err)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	mine, err := s.bookings.FindByDateAndRequester(ctx, dateKey, requesterID)
	if err != nil && !errors.Is(err, laundryerrors.ErrBookingNotFound) {
		s.cfg.Log.Error("Failed to read booking", "date_key", dateKey, "requester_id", requesterID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return &model.DayCatalog{
		DateKey:   dateKey,
		DayLabel:  calendar.DayLabel(dateKey, s.now(), s.cfg.Location),
		Slots:     availability.Project(slots, mine, s.cfg.AlmostFullRatio),
		MyBooking: mine,
	}, nil
}

// WatchDay pushes a fresh catalog first and then after every change to the
// day's slots or to the requester's bookings. A slow reader only ever sees
// the latest catalog. The channel closes when ctx ends or a change stream
// fails.
func (s *catalogService) WatchDay(ctx context.Context, dateKey, requesterID string) (<-chan *model.DayCatalog, error) {
	if err := s.validate(dateKey, requesterID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	slotChanges, err := s.slots.Watch(ctx, dateKey)
	if err != nil {
		cancel()
		s.cfg.Log.Error("Failed to watch slots", "date_key", dateKey, "error", err)
		return nil, apperrors.Unavailable("Slot updates")
	}
	bookingChanges, err := s.bookings.Watch(ctx, requesterID)
	if err != nil {
		cancel()
		s.cfg.Log.Error("Failed to watch bookings", "requester_id", requesterID, "error", err)
		return nil, apperrors.Unavailable("Booking updates")
	}

	first, err := s.read(ctx, dateKey, requesterID)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan *model.DayCatalog, 1)
	out <- first

	go func() {
		defer cancel()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-slotChanges:
				if !ok {
					return
				}
			case _, ok := <-bookingChanges:
				if !ok {
					return
				}
			}

			catalog, err := s.read(ctx, dateKey, requesterID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.cfg.Log.Warn("Skipping catalog refresh", "date_key", dateKey, "error", err)
				continue
			}
			offerLatest(out, catalog)
		}
	}()

	return out, nil
}

func (s *catalogService) validate(dateKey, requesterID string) error {
	if err := s.validator.ValidateRequesterID(requesterID); err != nil {
		return apperrors.Validation("Invalid requester", map[string]any{"error": err.Error()})
	}
	if err := s.validator.ValidateDateKey(dateKey); err != nil {
		return apperrors.Validation("Invalid date", map[string]any{"error": err.Error()})
	}
	return nil
}

// offerLatest replaces any undelivered value in a buffer-of-one channel. Only
// the producing goroutine may call it.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
