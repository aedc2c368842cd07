// Package availability projects stored slots into per-requester views.
package availability

import (
	"sort"

	"dormly/pkg/calendar"
	"dormly/pkg/model"
)

const DefaultAlmostFullRatio = 0.7

// Project derives the view of slots for the requester holding myBooking (nil
// when they hold nothing that day). Slots come back ordered by start time,
// then slot id. The input slice is not modified.
func Project(slots []*model.Slot, myBooking *model.Booking, almostFullRatio float64) []model.SlotView {
	if almostFullRatio <= 0 {
		almostFullRatio = DefaultAlmostFullRatio
	}

	ordered := make([]*model.Slot, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].SlotID < ordered[j].SlotID
	})

	hasBooking := myBooking != nil
	views := make([]model.SlotView, 0, len(ordered))
	for _, s := range ordered {
		views = append(views, viewOf(s, myBooking, hasBooking, almostFullRatio))
	}
	return views
}

func viewOf(s *model.Slot, myBooking *model.Booking, hasBooking bool, almostFullRatio float64) model.SlotView {
	capacity := s.EffectiveCapacity()
	booked := max(s.BookedCount, 0)

	isUserSlot := hasBooking && myBooking.SlotID == s.SlotID
	isFull := booked >= capacity && !isUserSlot
	ratio := float64(booked) / float64(capacity)

	status := model.SlotStatusAvailable
	switch {
	case isUserSlot:
		status = model.SlotStatusMine
	case isFull:
		status = model.SlotStatusFull
	case ratio >= almostFullRatio:
		status = model.SlotStatusAlmostFull
	}

	return model.SlotView{
		SlotID:         s.SlotID,
		Start:          s.Start,
		End:            s.End,
		TimeRange:      calendar.FormatTimeRange(s.Start, s.End),
		Capacity:       capacity,
		BookedCount:    booked,
		IsUserSlot:     isUserSlot,
		IsFull:         isFull,
		IsAvailable:    !isFull && !isUserSlot && !hasBooking,
		OccupancyRatio: ratio,
		Status:         status,
	}
}

// MarkBooked applies the local transition after a committed Book: the slot
// takes the requester's seat and becomes their own, and every other slot
// stops being available.
func MarkBooked(views []model.SlotView, slotID string) []model.SlotView {
	out := make([]model.SlotView, len(views))
	for i, v := range views {
		v.IsAvailable = false
		if v.SlotID == slotID {
			v.BookedCount++
			v.OccupancyRatio = float64(v.BookedCount) / float64(max(v.Capacity, 1))
			v.IsUserSlot = true
			v.IsFull = false
			v.Status = model.SlotStatusMine
		}
		out[i] = v
	}
	return out
}

// MarkCancelled applies the local transition after a committed Cancel: the
// requester's seat in slotID is released and every slot is evaluated again
// for a requester holding nothing that day.
func MarkCancelled(views []model.SlotView, slotID string, almostFullRatio float64) []model.SlotView {
	if almostFullRatio <= 0 {
		almostFullRatio = DefaultAlmostFullRatio
	}
	out := make([]model.SlotView, len(views))
	for i, v := range views {
		booked := v.BookedCount
		if v.SlotID == slotID {
			booked = max(booked-1, 0)
		}
		out[i] = viewOf(slotOf(v, booked), nil, false, almostFullRatio)
	}
	return out
}

// MarkMoved applies the local transition after a committed Move from one slot
// to another.
func MarkMoved(views []model.SlotView, fromSlotID, toSlotID string, almostFullRatio float64) []model.SlotView {
	return MarkBooked(MarkCancelled(views, fromSlotID, almostFullRatio), toSlotID)
}

func slotOf(v model.SlotView, booked int) *model.Slot {
	return &model.Slot{
		SlotID:      v.SlotID,
		Start:       v.Start,
		End:         v.End,
		Capacity:    v.Capacity,
		BookedCount: booked,
	}
}
