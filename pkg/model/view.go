package model

import "time"

const (
	SlotStatusMine       = "mine"
	SlotStatusFull       = "full"
	SlotStatusAlmostFull = "almost_full"
	SlotStatusAvailable  = "available"
)

// SlotView is a slot as seen by one requester.
type SlotView struct {
	SlotID         string  `json:"slot_id"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	TimeRange      string  `json:"time_range"`
	Capacity       int     `json:"capacity"`
	BookedCount    int     `json:"booked_count"`
	IsUserSlot     bool    `json:"is_user_slot"`
	IsFull         bool    `json:"is_full"`
	IsAvailable    bool    `json:"is_available"`
	OccupancyRatio float64 `json:"occupancy_ratio"`
	Status         string  `json:"status"`
}

type DayCatalog struct {
	DateKey   string     `json:"date_key"`
	DayLabel  string     `json:"day_label"`
	Slots     []SlotView `json:"slots"`
	MyBooking *Booking   `json:"my_booking,omitempty"`
}

// BookableDay is one entry of the booking window.
type BookableDay struct {
	DateKey string `json:"date_key"`
	Label   string `json:"label"`
}

// NextBooking summarizes the requester's earliest upcoming reservation.
type NextBooking struct {
	DateKey   string    `json:"date_key"`
	DayLabel  string    `json:"day_label"`
	SlotID    string    `json:"slot_id"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	TimeRange string    `json:"time_range"`
	ForDate   time.Time `json:"for_date"`
}

// HistorySnapshot is one push of the history subscription. Next is nil when
// the requester has nothing upcoming.
type HistorySnapshot struct {
	Next *NextBooking `json:"next"`
}
