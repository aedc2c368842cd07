package client

import (
	"context"
	"sync"

	"dormly/pkg/availability"
	"dormly/pkg/model"
)

// DayView is a requester's local copy of one day's catalog. It changes only
// on Refresh, Replace, or after a Book, Move or Cancel the server committed.
type DayView struct {
	client  *LaundryClient
	dateKey string

	mu      sync.RWMutex
	catalog *model.DayCatalog
}

func NewDayView(client *LaundryClient, dateKey string) *DayView {
	return &DayView{client: client, dateKey: dateKey}
}

func (v *DayView) Refresh(ctx context.Context) error {
	catalog, err := v.client.Day(ctx, v.dateKey)
	if err != nil {
		return err
	}
	v.Replace(catalog)
	return nil
}

// Replace installs a snapshot pushed by the day stream.
func (v *DayView) Replace(catalog *model.DayCatalog) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.catalog = catalog
}

func (v *DayView) Slots() []model.SlotView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.catalog == nil {
		return nil
	}
	return append([]model.SlotView(nil), v.catalog.Slots...)
}

func (v *DayView) MyBooking() *model.Booking {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.catalog == nil {
		return nil
	}
	return v.catalog.MyBooking
}

// Book reserves slotID and, once the server has committed it, marks the slot
// as the requester's own. A failed Book leaves the view untouched.
func (v *DayView) Book(ctx context.Context, slotID, idempotencyKey string) (*model.Booking, error) {
	booking, err := v.client.Book(ctx, v.dateKey, slotID, idempotencyKey)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.catalog != nil {
		next := *v.catalog
		next.Slots = availability.MarkBooked(v.catalog.Slots, slotID)
		next.MyBooking = booking
		v.catalog = &next
	}
	return booking, nil
}

// Move switches the requester to slotID once the server has committed it. A
// failed Move leaves the view untouched.
func (v *DayView) Move(ctx context.Context, slotID string) (*model.Booking, error) {
	booking, err := v.client.Move(ctx, v.dateKey, slotID)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.catalog != nil {
		next := *v.catalog
		if v.catalog.MyBooking != nil {
			next.Slots = availability.MarkMoved(v.catalog.Slots, v.catalog.MyBooking.SlotID, slotID, 0)
		} else {
			next.Slots = availability.MarkBooked(v.catalog.Slots, slotID)
		}
		next.MyBooking = booking
		v.catalog = &next
	}
	return booking, nil
}

// Cancel releases the requester's booking and, once the server has committed
// it, makes the day bookable again. A failed Cancel leaves the view untouched.
func (v *DayView) Cancel(ctx context.Context) error {
	if err := v.client.Cancel(ctx, v.dateKey); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.catalog != nil && v.catalog.MyBooking != nil {
		next := *v.catalog
		next.Slots = availability.MarkCancelled(v.catalog.Slots, v.catalog.MyBooking.SlotID, 0)
		next.MyBooking = nil
		v.catalog = &next
	}
	return nil
}
