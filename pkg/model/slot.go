package model

import "time"

// Slot is one bookable laundry window of a day. Only BookedCount is mutated
// by reservations; everything else is owned by seeding.
type Slot struct {
	ID          string    `json:"-" bson:"_id"`
	DateKey     string    `json:"date_key" bson:"date_key" validate:"required,datetime=2006-01-02"`
	SlotID      string    `json:"slot_id" bson:"slot_id" validate:"required,min=1,max=32,slot_id"`
	Start       string    `json:"start" bson:"start" validate:"required,hhmm"`
	End         string    `json:"end" bson:"end" validate:"required,hhmm"`
	Capacity    int       `json:"capacity" bson:"capacity" validate:"min=0"`
	BookedCount int       `json:"booked_count" bson:"booked_count" validate:"min=0"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// SlotDocumentID is the store key of a slot: one document per (dateKey, slotId).
func SlotDocumentID(dateKey, slotID string) string {
	return dateKey + "/" + slotID
}

// EffectiveCapacity reads a stored capacity of 0 as a single seat.
func (s *Slot) EffectiveCapacity() int {
	if s.Capacity < 1 {
		return 1
	}
	return s.Capacity
}

func (s *Slot) HasRoom() bool {
	return s.BookedCount < s.EffectiveCapacity()
}

// SlotSeed is the administrative description of a slot. Seeding never touches
// BookedCount.
type SlotSeed struct {
	SlotID   string `json:"slot_id" validate:"required,min=1,max=32,slot_id"`
	Start    string `json:"start" validate:"required,hhmm"`
	End      string `json:"end" validate:"required,hhmm"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
}

type SeedDayRequest struct {
	Slots []SlotSeed `json:"slots" validate:"required,min=1,max=48,dive"`
}

// SlotAudit compares a slot's counter with the bookings that reference it.
type SlotAudit struct {
	SlotID       string `json:"slot_id"`
	BookedCount  int    `json:"booked_count"`
	BookingCount int    `json:"booking_count"`
	Capacity     int    `json:"capacity"`
	Consistent   bool   `json:"consistent"`
}

type DayAudit struct {
	DateKey    string      `json:"date_key"`
	Slots      []SlotAudit `json:"slots"`
	Orphans    []string    `json:"orphan_bookings,omitempty"`
	Consistent bool        `json:"consistent"`
}

type SeedResult struct {
	DateKey string `json:"date_key"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}
