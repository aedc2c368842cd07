package service

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	laundryerrors "dormly/internal/laundry/errors"
	"dormly/internal/laundry/events"
	"dormly/internal/laundry/validator"
	"dormly/pkg/config"
	mongotx "dormly/pkg/db/mongo"
	"dormly/pkg/logger"
	"dormly/pkg/model"
)

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Log:               logger.Discard(),
		Location:          time.UTC,
		BookingWindowDays: 7,
		AlmostFullRatio:   0.7,
		MaxSlotCapacity:   50,
		HistoryLimit:      15,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
	}
}

// memStore is an in-memory stand-in for the slot and booking collections.
// Transactions are serialized and roll back on error, which is the isolation
// the Mongo snapshot transaction gives the service.
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	slots    map[string]model.Slot
	bookings map[string]model.Booking
	watchers map[string][]chan struct{}

	// failOn makes the named operation return the error once.
	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		slots:    make(map[string]model.Slot),
		bookings: make(map[string]model.Booking),
		watchers: make(map[string][]chan struct{}),
		failOn:   make(map[string]error),
	}
}

func (m *memStore) addSlot(dateKey, slotID, start, end string, capacity, booked int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[model.SlotDocumentID(dateKey, slotID)] = model.Slot{
		ID:          model.SlotDocumentID(dateKey, slotID),
		DateKey:     dateKey,
		SlotID:      slotID,
		Start:       start,
		End:         end,
		Capacity:    capacity,
		BookedCount: booked,
	}
}

func (m *memStore) slot(dateKey, slotID string) model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[model.SlotDocumentID(dateKey, slotID)]
}

func (m *memStore) booking(dateKey, requesterID string) (model.Booking, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[model.BookingDocumentID(dateKey, requesterID)]
	return b, ok
}

func (m *memStore) bookingCount(dateKey, slotID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.DateKey == dateKey && b.SlotID == slotID {
			n++
		}
	}
	return n
}

func (m *memStore) fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[op] = err
}

// takeFailure must be called with mu held.
func (m *memStore) takeFailure(op string) error {
	err, ok := m.failOn[op]
	if !ok {
		return nil
	}
	delete(m.failOn, op)
	return err
}

func (m *memStore) notify(key string) {
	for _, ch := range m.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *memStore) watch(ctx context.Context, key string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	m.watchers[key] = append(m.watchers[key], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.watchers[key]
		for i, c := range list {
			if c == ch {
				m.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (m *memStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	slots := maps.Clone(m.slots)
	bookings := maps.Clone(m.bookings)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.slots, m.bookings = slots, bookings
		m.mu.Unlock()
		return err
	}
	return nil
}

type memSlots struct{ *memStore }

func (s memSlots) FindByDate(ctx context.Context, dateKey string) ([]*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("FindByDate"); err != nil {
		return nil, err
	}

	var out []*model.Slot
	for _, slot := range s.slots {
		if slot.DateKey == dateKey {
			slot := slot
			out = append(out, &slot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].SlotID < out[j].SlotID
	})
	return out, nil
}

func (s memSlots) FindByID(ctx context.Context, dateKey, slotID string) (*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("FindSlot"); err != nil {
		return nil, err
	}

	slot, ok := s.slots[model.SlotDocumentID(dateKey, slotID)]
	if !ok {
		return nil, laundryerrors.ErrSlotNotFound
	}
	return &slot, nil
}

func (s memSlots) IncrementBooked(ctx context.Context, dateKey, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("IncrementBooked"); err != nil {
		return err
	}

	id := model.SlotDocumentID(dateKey, slotID)
	slot, ok := s.slots[id]
	if !ok {
		return laundryerrors.ErrSlotNotFound
	}
	if !slot.HasRoom() {
		return laundryerrors.ErrSlotFull
	}
	slot.BookedCount++
	s.slots[id] = slot
	s.notify("slots:" + dateKey)
	return nil
}

func (s memSlots) DecrementBooked(ctx context.Context, dateKey, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("DecrementBooked"); err != nil {
		return err
	}

	id := model.SlotDocumentID(dateKey, slotID)
	slot, ok := s.slots[id]
	if !ok {
		return laundryerrors.ErrSlotNotFound
	}
	if slot.BookedCount > 0 {
		slot.BookedCount--
	}
	s.slots[id] = slot
	s.notify("slots:" + dateKey)
	return nil
}

func (s memSlots) Upsert(ctx context.Context, dateKey string, seed model.SlotSeed) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("Upsert"); err != nil {
		return false, err
	}

	id := model.SlotDocumentID(dateKey, seed.SlotID)
	slot, exists := s.slots[id]
	if !exists {
		slot = model.Slot{ID: id, DateKey: dateKey, SlotID: seed.SlotID}
	}
	slot.Start, slot.End, slot.Capacity = seed.Start, seed.End, seed.Capacity
	s.slots[id] = slot
	s.notify("slots:" + dateKey)
	return !exists, nil
}

func (s memSlots) Watch(ctx context.Context, dateKey string) (<-chan struct{}, error) {
	return s.watch(ctx, "slots:"+dateKey), nil
}

type memBookings struct{ *memStore }

func (b memBookings) FindByDateAndRequester(ctx context.Context, dateKey, requesterID string) (*model.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.takeFailure("FindBooking"); err != nil {
		return nil, err
	}

	booking, ok := b.bookings[model.BookingDocumentID(dateKey, requesterID)]
	if !ok {
		return nil, laundryerrors.ErrBookingNotFound
	}
	return &booking, nil
}

func (b memBookings) Create(ctx context.Context, booking *model.Booking) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.takeFailure("CreateBooking"); err != nil {
		return err
	}

	id := model.BookingDocumentID(booking.DateKey, booking.RequesterID)
	if _, exists := b.bookings[id]; exists {
		return laundryerrors.ErrAlreadyBooked
	}
	booking.ID = id
	b.bookings[id] = *booking
	b.notify("bookings:" + booking.RequesterID)
	return nil
}

func (b memBookings) Delete(ctx context.Context, dateKey, requesterID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.takeFailure("DeleteBooking"); err != nil {
		return err
	}

	id := model.BookingDocumentID(dateKey, requesterID)
	if _, exists := b.bookings[id]; !exists {
		return laundryerrors.ErrBookingNotFound
	}
	delete(b.bookings, id)
	b.notify("bookings:" + requesterID)
	return nil
}

func (b memBookings) CountByDate(ctx context.Context, dateKey string) (map[string]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[string]int)
	for _, booking := range b.bookings {
		if booking.DateKey == dateKey {
			counts[booking.SlotID]++
		}
	}
	return counts, nil
}

func (b memBookings) FindUpcoming(ctx context.Context, requesterID string, from time.Time, limit int) ([]*model.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.takeFailure("FindUpcoming"); err != nil {
		return nil, err
	}

	var out []*model.Booking
	for _, booking := range b.bookings {
		if booking.RequesterID == requesterID && !booking.ForDate.Before(from) {
			booking := booking
			out = append(out, &booking)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ForDate.Before(out[j].ForDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b memBookings) Watch(ctx context.Context, requesterID string) (<-chan struct{}, error) {
	return b.watch(ctx, "bookings:"+requesterID), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.BookingEvent(nil), p.events...)
}

func newTestReservationService(store *memStore, pub events.Publisher) *reservationService {
	cfg := testConfig()
	svc := NewReservationService(
		memSlots{store},
		memBookings{store},
		store,
		validator.NewReservationValidator(cfg.Log),
		pub,
		cfg,
	).(*reservationService)
	svc.now = func() time.Time { return testNow }
	return svc
}
