package validator

import (
	"errors"
	"strings"
	"testing"

	"dormly/pkg/logger"
	"dormly/pkg/model"
)

func newTestValidator() *ReservationValidator {
	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return NewReservationValidator(log)
}

func TestValidateDateKey(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name      string
		dateKey   string
		wantError bool
	}{
		{"valid", "2024-03-10", false},
		{"leap day", "2024-02-29", false},
		{"impossible date", "2023-02-29", true},
		{"unpadded", "2024-3-10", true},
		{"empty", "", true},
		{"timestamp", "2024-03-10T07:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDateKey(tt.dateKey)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateDateKey(%q) error = %v, wantError %v", tt.dateKey, err, tt.wantError)
			}
		})
	}
}

func TestValidateRequesterID(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateRequesterID("student-42"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateRequesterID("   "); err == nil {
		t.Errorf("expected blank requester to be rejected")
	}
	if err := v.ValidateRequesterID(strings.Repeat("x", MaxRequesterIDLength+1)); err == nil {
		t.Errorf("expected oversized requester to be rejected")
	}
}

func TestValidateBookingRequest(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name      string
		req       *model.BookingRequest
		wantError bool
		wantField string
	}{
		{"valid", &model.BookingRequest{SlotID: "S1"}, false, ""},
		{"dash allowed", &model.BookingRequest{SlotID: "0700-a"}, false, ""},
		{"missing", &model.BookingRequest{}, true, "SlotID"},
		{"slash rejected", &model.BookingRequest{SlotID: "S1/2"}, true, "SlotID"},
		{"too long", &model.BookingRequest{SlotID: strings.Repeat("a", 33)}, true, "SlotID"},
		{"nil request", nil, true, "slot_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBookingRequest(tt.req)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateBookingRequest() error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError {
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) || len(verrs) == 0 {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, verrs[0].Field)
			}
		})
	}
}

func TestValidateSeed(t *testing.T) {
	v := newTestValidator()

	valid := func() *model.SeedDayRequest {
		return &model.SeedDayRequest{Slots: []model.SlotSeed{
			{SlotID: "S1", Start: "07:00", End: "08:00", Capacity: 2},
			{SlotID: "S2", Start: "08:00", End: "09:00", Capacity: 2},
		}}
	}

	tests := []struct {
		name    string
		mutate  func(*model.SeedDayRequest)
		wantMsg string
	}{
		{"valid", func(*model.SeedDayRequest) {}, ""},
		{"empty batch", func(r *model.SeedDayRequest) { r.Slots = nil }, "is required"},
		{"bad start", func(r *model.SeedDayRequest) { r.Slots[0].Start = "7:00" }, "HH:MM"},
		{"end before start", func(r *model.SeedDayRequest) { r.Slots[1].End = "07:30" }, "end must be after start"},
		{"equal bounds", func(r *model.SeedDayRequest) { r.Slots[1].End = "08:00" }, "end must be after start"},
		{"duplicate id", func(r *model.SeedDayRequest) { r.Slots[1].SlotID = "S1" }, "duplicate slot_id"},
		{"zero capacity", func(r *model.SeedDayRequest) { r.Slots[0].Capacity = 0 }, "is required"},
		{"over max capacity", func(r *model.SeedDayRequest) { r.Slots[0].Capacity = 51 }, "at most 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := v.ValidateSeed(req, 50)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantMsg)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}
