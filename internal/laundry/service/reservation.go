package service

import (
	"context"
	"errors"
	"time"

	laundryerrors "dormly/internal/laundry/errors"
	"dormly/internal/laundry/events"
	"dormly/internal/laundry/repository"
	"dormly/internal/laundry/validator"
	"dormly/pkg/calendar"
	"dormly/pkg/config"
	mongotx "dormly/pkg/db/mongo"
	apperrors "dormly/pkg/errors"
	"dormly/pkg/model"
)

const publishTimeout = 5 * time.Second

// ReservationService is the transactional write path. Every operation
// re-reads the slot and the booking inside one transaction, so the slot's
// booked count always equals the number of bookings referencing it.
type ReservationService interface {
	Book(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error)
	Cancel(ctx context.Context, dateKey, requesterID string) error
	Move(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error)
	GetBooking(ctx context.Context, dateKey, requesterID string) (*model.Booking, error)
}

type reservationService struct {
	slots     repository.SlotRepository
	bookings  repository.BookingRepository
	tx        mongotx.TransactionManager
	validator *validator.ReservationValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewReservationService(
	slots repository.SlotRepository,
	bookings repository.BookingRepository,
	tx mongotx.TransactionManager,
	validator *validator.ReservationValidator,
	publisher events.Publisher,
	cfg *config.Config,
) ReservationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &reservationService{
		slots:     slots,
		bookings:  bookings,
		tx:        tx,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *reservationService) Book(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error) {
	if err := s.validateBookable(dateKey, requesterID, slotID); err != nil {
		return nil, err
	}

	var booking *model.Booking
	err := s.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		booking = nil

		if err := s.ensureNoBooking(txCtx, dateKey, requesterID); err != nil {
			return err
		}

		slot, err := s.loadSlot(txCtx, dateKey, slotID)
		if err != nil {
			return err
		}
		if !slot.HasRoom() {
			return apperrors.SlotFull(dateKey, slotID)
		}

		b, err := s.claim(txCtx, slot, requesterID)
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, s.fail("book", err, dateKey, requesterID, "slot_id", slotID)
	}

	s.cfg.Log.Info("Slot booked",
		"date_key", dateKey,
		"requester_id", requesterID,
		"slot_id", slotID,
	)
	s.publish(ctx, events.Created(booking, s.now().UTC()))
	return booking, nil
}

func (s *reservationService) Cancel(ctx context.Context, dateKey, requesterID string) error {
	if err := s.validateKeys(dateKey, requesterID); err != nil {
		return err
	}

	var cancelled *model.Booking
	err := s.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		cancelled = nil

		booking, err := s.loadBooking(txCtx, dateKey, requesterID)
		if err != nil {
			return err
		}
		if _, err := s.loadSlot(txCtx, dateKey, booking.SlotID); err != nil {
			return err
		}
		if err := s.release(txCtx, booking); err != nil {
			return err
		}
		cancelled = booking
		return nil
	})
	if err != nil {
		return s.fail("cancel", err, dateKey, requesterID)
	}

	s.cfg.Log.Info("Booking cancelled",
		"date_key", dateKey,
		"requester_id", requesterID,
		"slot_id", cancelled.SlotID,
	)
	s.publish(ctx, events.Cancelled(cancelled, s.now().UTC()))
	return nil
}

// Move swaps the requester's slot for the day in a single transaction, so a
// failed move leaves the original booking in place. Moving onto the slot
// already held is a no-op.
func (s *reservationService) Move(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error) {
	if err := s.validateBookable(dateKey, requesterID, slotID); err != nil {
		return nil, err
	}

	var moved *model.Booking
	var previousSlotID string
	err := s.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		moved, previousSlotID = nil, ""

		current, err := s.loadBooking(txCtx, dateKey, requesterID)
		if err != nil {
			return err
		}
		if current.SlotID == slotID {
			moved = current
			return nil
		}

		if _, err := s.loadSlot(txCtx, dateKey, current.SlotID); err != nil {
			return err
		}
		target, err := s.loadSlot(txCtx, dateKey, slotID)
		if err != nil {
			return err
		}
		if !target.HasRoom() {
			return apperrors.SlotFull(dateKey, slotID)
		}

		if err := s.release(txCtx, current); err != nil {
			return err
		}
		b, err := s.claim(txCtx, target, requesterID)
		if err != nil {
			return err
		}
		moved, previousSlotID = b, current.SlotID
		return nil
	})
	if err != nil {
		return nil, s.fail("move", err, dateKey, requesterID, "slot_id", slotID)
	}

	if previousSlotID == "" {
		return moved, nil
	}

	s.cfg.Log.Info("Booking moved",
		"date_key", dateKey,
		"requester_id", requesterID,
		"from_slot_id", previousSlotID,
		"to_slot_id", slotID,
	)
	s.publish(ctx, events.Moved(moved, previousSlotID, s.now().UTC()))
	return moved, nil
}

// GetBooking is a plain point read outside any transaction. It may be stale
// by the time the caller acts on it; the write path re-validates.
func (s *reservationService) GetBooking(ctx context.Context, dateKey, requesterID string) (*model.Booking, error) {
	if err := s.validateKeys(dateKey, requesterID); err != nil {
		return nil, err
	}

	booking, err := s.bookings.FindByDateAndRequester(ctx, dateKey, requesterID)
	if err != nil {
		if errors.Is(err, laundryerrors.ErrBookingNotFound) {
			return nil, apperrors.BookingNotFound(dateKey)
		}
		s.cfg.Log.Error("Failed to read booking", "date_key", dateKey, "requester_id", requesterID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *reservationService) ensureNoBooking(ctx context.Context, dateKey, requesterID string) error {
	_, err := s.bookings.FindByDateAndRequester(ctx, dateKey, requesterID)
	switch {
	case err == nil:
		return apperrors.AlreadyBooked(dateKey)
	case errors.Is(err, laundryerrors.ErrBookingNotFound):
		return nil
	default:
		return err
	}
}

func (s *reservationService) loadBooking(ctx context.Context, dateKey, requesterID string) (*model.Booking, error) {
	booking, err := s.bookings.FindByDateAndRequester(ctx, dateKey, requesterID)
	if err != nil {
		if errors.Is(err, laundryerrors.ErrBookingNotFound) {
			return nil, apperrors.BookingNotFound(dateKey)
		}
		return nil, err
	}
	return booking, nil
}

func (s *reservationService) loadSlot(ctx context.Context, dateKey, slotID string) (*model.Slot, error) {
	slot, err := s.slots.FindByID(ctx, dateKey, slotID)
	if err != nil {
		if errors.Is(err, laundryerrors.ErrSlotNotFound) {
			return nil, apperrors.SlotNotFound(dateKey, slotID)
		}
		return nil, err
	}
	return slot, nil
}

// claim writes the booking and takes the seat. Must run inside a transaction.
func (s *reservationService) claim(ctx context.Context, slot *model.Slot, requesterID string) (*model.Booking, error) {
	forDate, err := calendar.ParseDateKey(slot.DateKey, s.cfg.Location)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	booking := &model.Booking{
		RequesterID: requesterID,
		DateKey:     slot.DateKey,
		SlotID:      slot.SlotID,
		Start:       slot.Start,
		End:         slot.End,
		ForDate:     forDate,
		CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, laundryerrors.ErrAlreadyBooked) {
			return nil, apperrors.AlreadyBooked(slot.DateKey)
		}
		return nil, err
	}

	if err := s.slots.IncrementBooked(ctx, slot.DateKey, slot.SlotID); err != nil {
		switch {
		case errors.Is(err, laundryerrors.ErrSlotFull):
			return nil, apperrors.SlotFull(slot.DateKey, slot.SlotID)
		case errors.Is(err, laundryerrors.ErrSlotNotFound):
			return nil, apperrors.SlotNotFound(slot.DateKey, slot.SlotID)
		}
		return nil, err
	}
	return booking, nil
}

// release deletes the booking and frees its seat. Must run inside a
// transaction.
func (s *reservationService) release(ctx context.Context, booking *model.Booking) error {
	if err := s.bookings.Delete(ctx, booking.DateKey, booking.RequesterID); err != nil {
		if errors.Is(err, laundryerrors.ErrBookingNotFound) {
			return apperrors.BookingNotFound(booking.DateKey)
		}
		return err
	}
	if err := s.slots.DecrementBooked(ctx, booking.DateKey, booking.SlotID); err != nil {
		if errors.Is(err, laundryerrors.ErrSlotNotFound) {
			return apperrors.SlotNotFound(booking.DateKey, booking.SlotID)
		}
		return err
	}
	return nil
}

func (s *reservationService) validateKeys(dateKey, requesterID string) error {
	if err := s.validator.ValidateRequesterID(requesterID); err != nil {
		return apperrors.Validation("Invalid requester", map[string]any{"error": err.Error()})
	}
	if err := s.validator.ValidateDateKey(dateKey); err != nil {
		return apperrors.Validation("Invalid date", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *reservationService) validateBookable(dateKey, requesterID, slotID string) error {
	if err := s.validateKeys(dateKey, requesterID); err != nil {
		return err
	}
	if err := s.validator.ValidateSlotID(slotID); err != nil {
		return apperrors.Validation("Invalid slot", map[string]any{"error": err.Error()})
	}
	if !calendar.InWindow(dateKey, s.now(), s.cfg.Location, s.cfg.BookingWindowDays) {
		return apperrors.Validation("Date is outside the booking window", map[string]any{
			"date_key":    dateKey,
			"window_days": s.cfg.BookingWindowDays,
		})
	}
	return nil
}

// fail passes reservation outcomes through and reports anything else as a
// failed transaction the caller may retry.
func (s *reservationService) fail(op string, err error, dateKey, requesterID string, args ...any) error {
	attrs := append([]any{"operation", op, "date_key", dateKey, "requester_id", requesterID}, args...)

	if apperrors.IsAppError(err) {
		appErr := apperrors.AsAppError(err)
		s.cfg.Log.Warn("Reservation rejected", append(attrs, "code", appErr.Code)...)
		return appErr
	}

	s.cfg.Log.Error("Reservation transaction failed", append(attrs, "error", err)...)
	return apperrors.TransactionFailed(err)
}

func (s *reservationService) publish(ctx context.Context, event events.BookingEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"type", event.Type,
			"date_key", event.DateKey,
			"requester_id", event.RequesterID,
			"error", err,
		)
	}
}
