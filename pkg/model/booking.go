package model

import "time"

// Booking is a requester's claim on one slot for one day. It is created by
// Book, deleted by Cancel and never updated in place. Start and End are a
// snapshot of the slot at booking time and are not kept in sync with later
// slot edits.
type Booking struct {
	ID          string    `json:"id" bson:"_id"`
	RequesterID string    `json:"requester_id" bson:"requester_id"`
	DateKey     string    `json:"date_key" bson:"date_key"`
	SlotID      string    `json:"slot_id" bson:"slot_id"`
	Start       string    `json:"start" bson:"start"`
	End         string    `json:"end" bson:"end"`
	ForDate     time.Time `json:"for_date" bson:"for_date"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// BookingDocumentID is the store key of a booking. Keying on (dateKey,
// requesterId) lets the unique _id index enforce one booking per day.
func BookingDocumentID(dateKey, requesterID string) string {
	return dateKey + "_" + requesterID
}

type BookingRequest struct {
	SlotID string `json:"slot_id" validate:"required,min=1,max=32,slot_id"`
}
