package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dormly/internal/laundry/events"
	apperrors "dormly/pkg/errors"
	"dormly/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = "2024-03-10"

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr, "expected an AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertConsistent(t *testing.T, store *memStore, dateKey string, slotIDs ...string) {
	t.Helper()
	for _, id := range slotIDs {
		slot := store.slot(dateKey, id)
		assert.GreaterOrEqual(t, slot.BookedCount, 0, "slot %s", id)
		assert.LessOrEqual(t, slot.BookedCount, slot.EffectiveCapacity(), "slot %s", id)
		assert.Equal(t, store.bookingCount(dateKey, id), slot.BookedCount, "slot %s counter vs bookings", id)
	}
}

func TestBook_Scenario(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	store.addSlot(day, "S2", "08:00", "09:00", 2, 0)
	pub := &recordingPublisher{}
	svc := newTestReservationService(store, pub)
	ctx := context.Background()

	booking, err := svc.Book(ctx, day, "A", "S1")
	require.NoError(t, err)
	assert.Equal(t, "S1", booking.SlotID)
	assert.Equal(t, "07:00", booking.Start)
	assert.Equal(t, "08:00", booking.End)
	assert.Equal(t, 1, store.slot(day, "S1").BookedCount)

	_, err = svc.Book(ctx, day, "B", "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.slot(day, "S1").BookedCount)

	_, err = svc.Book(ctx, day, "C", "S1")
	assertCode(t, err, apperrors.CodeSlotFull)
	assert.Equal(t, 2, store.slot(day, "S1").BookedCount)

	_, err = svc.Book(ctx, day, "A", "S2")
	assertCode(t, err, apperrors.CodeAlreadyBooked)
	assert.Equal(t, 0, store.slot(day, "S2").BookedCount)

	require.NoError(t, svc.Cancel(ctx, day, "A"))
	assert.Equal(t, 1, store.slot(day, "S1").BookedCount)
	_, held := store.booking(day, "A")
	assert.False(t, held)

	_, err = svc.Book(ctx, day, "C", "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.slot(day, "S1").BookedCount)

	assertConsistent(t, store, day, "S1", "S2")

	published := pub.published()
	require.Len(t, published, 4)
	assert.Equal(t, events.TypeBookingCreated, published[0].Type)
	assert.Equal(t, events.TypeBookingCancelled, published[2].Type)
	assert.Equal(t, "A", published[2].RequesterID)
}

func TestBook_ConcurrentLastSeat(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 1, 0)
	svc := newTestReservationService(store, nil)

	const requesters = 8
	var wg sync.WaitGroup
	errs := make([]error, requesters)
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), day, fmt.Sprintf("R%d", i), "S1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotFull), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assertConsistent(t, store, day, "S1")
}

func TestBook_TwiceIsRejected(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 3, 0)
	svc := newTestReservationService(store, nil)

	_, err := svc.Book(context.Background(), day, "A", "S1")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), day, "A", "S1")
	assertCode(t, err, apperrors.CodeAlreadyBooked)
	assert.Equal(t, 1, store.slot(day, "S1").BookedCount)
}

func TestBook_SlotNotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestReservationService(store, nil)

	_, err := svc.Book(context.Background(), day, "A", "missing")
	assertCode(t, err, apperrors.CodeSlotNotFound)
	_, held := store.booking(day, "A")
	assert.False(t, held)
}

func TestBook_ZeroCapacityReadsAsOne(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 0, 0)
	svc := newTestReservationService(store, nil)

	_, err := svc.Book(context.Background(), day, "A", "S1")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), day, "B", "S1")
	assertCode(t, err, apperrors.CodeSlotFull)
}

func TestBook_StoreFailureRollsBack(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	store.fail("IncrementBooked", errors.New("connection reset"))
	pub := &recordingPublisher{}
	svc := newTestReservationService(store, pub)

	_, err := svc.Book(context.Background(), day, "A", "S1")
	assertCode(t, err, apperrors.CodeTransactionFailed)

	_, held := store.booking(day, "A")
	assert.False(t, held, "booking must not survive a failed transaction")
	assert.Equal(t, 0, store.slot(day, "S1").BookedCount)
	assert.Empty(t, pub.published())

	// the same call succeeds once the store recovers
	_, err = svc.Book(context.Background(), day, "A", "S1")
	require.NoError(t, err)
	assertConsistent(t, store, day, "S1")
}

func TestBook_PublishFailureDoesNotFail(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	svc := newTestReservationService(store, &recordingPublisher{err: errors.New("broker down")})

	_, err := svc.Book(context.Background(), day, "A", "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.slot(day, "S1").BookedCount)
}

func TestBook_Validation(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	svc := newTestReservationService(store, nil)

	tests := []struct {
		name      string
		dateKey   string
		requester string
		slotID    string
	}{
		{"empty requester", day, "", "S1"},
		{"bad date", "2024-13-01", "A", "S1"},
		{"bad slot id", day, "A", "S 1"},
		{"before window", "2024-03-09", "A", "S1"},
		{"after window", "2024-03-17", "A", "S1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), tt.dateKey, tt.requester, tt.slotID)
			assertCode(t, err, apperrors.CodeValidation)
		})
	}
	assert.Equal(t, 0, store.slot(day, "S1").BookedCount)
}

func TestCancel_WithoutBooking(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 1)
	svc := newTestReservationService(store, nil)

	err := svc.Cancel(context.Background(), day, "A")
	assertCode(t, err, apperrors.CodeBookingNotFound)
	assert.Equal(t, 1, store.slot(day, "S1").BookedCount)
}

func TestCancel_SlotRemoved(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	svc := newTestReservationService(store, nil)

	_, err := svc.Book(context.Background(), day, "A", "S1")
	require.NoError(t, err)

	store.mu.Lock()
	delete(store.slots, "2024-03-10/S1")
	store.mu.Unlock()

	err = svc.Cancel(context.Background(), day, "A")
	assertCode(t, err, apperrors.CodeSlotNotFound)
	_, held := store.booking(day, "A")
	assert.True(t, held, "booking is kept when its slot is gone")
}

func TestCancel_ClampsAtZero(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	store.bookings[model.BookingDocumentID(day, "A")] = model.Booking{
		ID:          model.BookingDocumentID(day, "A"),
		RequesterID: "A",
		DateKey:     day,
		SlotID:      "S1",
		Start:       "07:00",
		End:         "08:00",
		ForDate:     time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	svc := newTestReservationService(store, nil)

	require.NoError(t, svc.Cancel(context.Background(), day, "A"))

	assert.Equal(t, 0, store.slot(day, "S1").BookedCount)
	_, held := store.booking(day, "A")
	assert.False(t, held)
}

func TestCancel_PastDateAllowed(t *testing.T) {
	store := newMemStore()
	store.addSlot("2024-03-01", "S1", "07:00", "08:00", 2, 1)
	store.bookings[model.BookingDocumentID("2024-03-01", "A")] = model.Booking{
		ID:          model.BookingDocumentID("2024-03-01", "A"),
		RequesterID: "A",
		DateKey:     "2024-03-01",
		SlotID:      "S1",
		Start:       "07:00",
		End:         "08:00",
		ForDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	svc := newTestReservationService(store, nil)

	require.NoError(t, svc.Cancel(context.Background(), "2024-03-01", "A"))
	assertConsistent(t, store, "2024-03-01", "S1")
}

func TestMove(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	store.addSlot(day, "S2", "08:00", "09:00", 1, 0)
	pub := &recordingPublisher{}
	svc := newTestReservationService(store, pub)
	ctx := context.Background()

	_, err := svc.Book(ctx, day, "A", "S1")
	require.NoError(t, err)

	moved, err := svc.Move(ctx, day, "A", "S2")
	require.NoError(t, err)
	assert.Equal(t, "S2", moved.SlotID)
	assert.Equal(t, "08:00", moved.Start)
	assert.Equal(t, 0, store.slot(day, "S1").BookedCount)
	assert.Equal(t, 1, store.slot(day, "S2").BookedCount)
	assertConsistent(t, store, day, "S1", "S2")

	published := pub.published()
	require.Len(t, published, 2)
	assert.Equal(t, events.TypeBookingMoved, published[1].Type)
	assert.Equal(t, "S1", published[1].PreviousSlotID)
}

func TestMove_SameSlotIsNoop(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 1, 0)
	pub := &recordingPublisher{}
	svc := newTestReservationService(store, pub)

	_, err := svc.Book(context.Background(), day, "A", "S1")
	require.NoError(t, err)

	moved, err := svc.Move(context.Background(), day, "A", "S1")
	require.NoError(t, err)
	assert.Equal(t, "S1", moved.SlotID)
	assert.Equal(t, 1, store.slot(day, "S1").BookedCount)
	assert.Len(t, pub.published(), 1)
}

func TestMove_FailureKeepsOriginal(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	store.addSlot(day, "S2", "08:00", "09:00", 1, 1)
	svc := newTestReservationService(store, nil)
	ctx := context.Background()

	_, err := svc.Book(ctx, day, "A", "S1")
	require.NoError(t, err)

	_, err = svc.Move(ctx, day, "A", "S2")
	assertCode(t, err, apperrors.CodeSlotFull)

	_, err = svc.Move(ctx, day, "A", "S9")
	assertCode(t, err, apperrors.CodeSlotNotFound)

	store.fail("IncrementBooked", errors.New("write conflict"))
	store.mu.Lock()
	s2 := store.slots["2024-03-10/S2"]
	s2.Capacity = 2
	store.slots["2024-03-10/S2"] = s2
	store.mu.Unlock()

	_, err = svc.Move(ctx, day, "A", "S2")
	assertCode(t, err, apperrors.CodeTransactionFailed)

	booking, held := store.booking(day, "A")
	require.True(t, held)
	assert.Equal(t, "S1", booking.SlotID)
	assert.Equal(t, 1, store.slot(day, "S1").BookedCount)
	assert.Equal(t, 1, store.slot(day, "S2").BookedCount)
}

func TestMove_WithoutBooking(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	svc := newTestReservationService(store, nil)

	_, err := svc.Move(context.Background(), day, "A", "S1")
	assertCode(t, err, apperrors.CodeBookingNotFound)
}

func TestGetBooking(t *testing.T) {
	store := newMemStore()
	store.addSlot(day, "S1", "07:00", "08:00", 2, 0)
	svc := newTestReservationService(store, nil)

	_, err := svc.GetBooking(context.Background(), day, "A")
	assertCode(t, err, apperrors.CodeBookingNotFound)

	_, err = svc.Book(context.Background(), day, "A", "S1")
	require.NoError(t, err)

	booking, err := svc.GetBooking(context.Background(), day, "A")
	require.NoError(t, err)
	assert.Equal(t, "S1", booking.SlotID)
	assert.Equal(t, testNow, booking.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), booking.ForDate)
}
