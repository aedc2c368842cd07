package model

import (
	"testing"
)

func TestSlot_EffectiveCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		want     int
	}{
		{"unset capacity is one seat", 0, 1},
		{"negative capacity is one seat", -3, 1},
		{"single seat", 1, 1},
		{"several seats", 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Slot{Capacity: tt.capacity}
			if got := s.EffectiveCapacity(); got != tt.want {
				t.Errorf("EffectiveCapacity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSlot_HasRoom(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		booked   int
		want     bool
	}{
		{"empty", 2, 0, true},
		{"one left", 2, 1, true},
		{"full", 2, 2, false},
		{"unset capacity holds one", 0, 1, false},
		{"overbooked", 1, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Slot{Capacity: tt.capacity, BookedCount: tt.booked}
			if got := s.HasRoom(); got != tt.want {
				t.Errorf("HasRoom() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocumentIDs(t *testing.T) {
	if got := SlotDocumentID("2024-03-10", "0700"); got != "2024-03-10/0700" {
		t.Errorf("SlotDocumentID() = %q", got)
	}
	if got := BookingDocumentID("2024-03-10", "student-1"); got != "2024-03-10_student-1" {
		t.Errorf("BookingDocumentID() = %q", got)
	}
	if BookingDocumentID("2024-03-10", "a") == BookingDocumentID("2024-03-11", "a") {
		t.Error("bookings on different days must not share an id")
	}
}
