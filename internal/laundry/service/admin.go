package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	laundryerrors "dormly/internal/laundry/errors"
	"dormly/internal/laundry/repository"
	"dormly/internal/laundry/validator"
	"dormly/pkg/calendar"
	"dormly/pkg/config"
	mongotx "dormly/pkg/db/mongo"
	apperrors "dormly/pkg/errors"
	"dormly/pkg/model"
)

// AdminService owns slot seeding and the consistency audit. Seeding never
// touches booked counts and never deletes a slot.
type AdminService interface {
	SeedDay(ctx context.Context, dateKey string, req *model.SeedDayRequest) (*model.SeedResult, error)
	SeedWindow(ctx context.Context, seeds []model.SlotSeed) ([]*model.SeedResult, error)
	AuditDay(ctx context.Context, dateKey string) (*model.DayAudit, error)
}

type adminService struct {
	slots     repository.SlotRepository
	bookings  repository.BookingRepository
	tx        mongotx.TransactionManager
	validator *validator.ReservationValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewAdminService(
	slots repository.SlotRepository,
	bookings repository.BookingRepository,
	tx mongotx.TransactionManager,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) AdminService {
	return &adminService{
		slots:     slots,
		bookings:  bookings,
		tx:        tx,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *adminService) SeedDay(ctx context.Context, dateKey string, req *model.SeedDayRequest) (*model.SeedResult, error) {
	if err := s.validator.ValidateDateKey(dateKey); err != nil {
		return nil, apperrors.Validation("Invalid date", map[string]any{"error": err.Error()})
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}
	if err := s.validator.ValidateSeed(req, s.cfg.MaxSlotCapacity); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return nil, apperrors.Validation("Invalid slot seed", map[string]any{"errors": validationErrs})
		}
		return nil, apperrors.Validation("Invalid slot seed", map[string]any{"error": err.Error()})
	}

	var result *model.SeedResult
	err := s.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		result = &model.SeedResult{DateKey: dateKey}

		for _, seed := range req.Slots {
			existing, err := s.slots.FindByID(txCtx, dateKey, seed.SlotID)
			if err != nil && !errors.Is(err, laundryerrors.ErrSlotNotFound) {
				return err
			}
			if existing != nil && seed.Capacity < existing.BookedCount {
				return apperrors.Wrap(laundryerrors.ErrCapacityBelowBooked, apperrors.CodeConflict,
					"Capacity is below the number of seats already booked", 409).
					WithDetails(map[string]any{
						"date_key":     dateKey,
						"slot_id":      seed.SlotID,
						"capacity":     seed.Capacity,
						"booked_count": existing.BookedCount,
					})
			}

			created, err := s.slots.Upsert(txCtx, dateKey, seed)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, apperrors.AsAppError(err)
		}
		s.cfg.Log.Error("Failed to seed day", "date_key", dateKey, "error", err)
		return nil, apperrors.TransactionFailed(err)
	}

	s.cfg.Log.Info("Day seeded",
		"date_key", dateKey,
		"created", result.Created,
		"updated", result.Updated,
	)
	return result, nil
}

// SeedWindow applies the same slot set to every day of the booking window.
// It stops at the first day that fails.
func (s *adminService) SeedWindow(ctx context.Context, seeds []model.SlotSeed) ([]*model.SeedResult, error) {
	days := calendar.Window(s.now(), s.cfg.Location, s.cfg.BookingWindowDays)
	results := make([]*model.SeedResult, 0, len(days))

	for _, day := range days {
		result, err := s.SeedDay(ctx, day.DateKey, &model.SeedDayRequest{Slots: seeds})
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// AuditDay reads the day's slots and bookings from one snapshot and reports
// every slot whose counter disagrees with its bookings. It never repairs.
func (s *adminService) AuditDay(ctx context.Context, dateKey string) (*model.DayAudit, error) {
	if err := s.validator.ValidateDateKey(dateKey); err != nil {
		return nil, apperrors.Validation("Invalid date", map[string]any{"error": err.Error()})
	}

	var slots []*model.Slot
	var counts map[string]int
	err := s.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if slots, err = s.slots.FindByDate(txCtx, dateKey); err != nil {
			return err
		}
		counts, err = s.bookings.CountByDate(txCtx, dateKey)
		return err
	})
	if err != nil {
		s.cfg.Log.Error("Failed to audit day", "date_key", dateKey, "error", err)
		return nil, apperrors.Internal("Failed to audit day", err)
	}

	audit := &model.DayAudit{
		DateKey:    dateKey,
		Slots:      make([]model.SlotAudit, 0, len(slots)),
		Consistent: true,
	}

	known := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		known[slot.SlotID] = struct{}{}
		bookingCount := counts[slot.SlotID]
		entry := model.SlotAudit{
			SlotID:       slot.SlotID,
			BookedCount:  slot.BookedCount,
			BookingCount: bookingCount,
			Capacity:     slot.EffectiveCapacity(),
			Consistent:   slot.BookedCount == bookingCount && bookingCount <= slot.EffectiveCapacity(),
		}
		if !entry.Consistent {
			audit.Consistent = false
		}
		audit.Slots = append(audit.Slots, entry)
	}

	for slotID := range counts {
		if _, ok := known[slotID]; !ok {
			audit.Orphans = append(audit.Orphans, slotID)
			audit.Consistent = false
		}
	}
	sort.Strings(audit.Orphans)

	if !audit.Consistent {
		s.cfg.Log.Warn("Day audit found inconsistencies", "date_key", dateKey, "orphans", len(audit.Orphans))
	}
	return audit, nil
}

// ParseTemplate reads a compact slot template such as
// "07:00-08:00x2,08:00-09:00x2". Each entry is start-end with an optional
// xN capacity (default 1). Slot ids are the start time without the colon.
func ParseTemplate(template string) ([]model.SlotSeed, error) {
	var seeds []model.SlotSeed

	for _, raw := range strings.Split(template, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		capacity := 1
		if window, c, ok := strings.Cut(entry, "x"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(c))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid capacity in %q", entry)
			}
			capacity = n
			entry = strings.TrimSpace(window)
		}

		start, end, ok := strings.Cut(entry, "-")
		if !ok {
			return nil, fmt.Errorf("invalid slot window %q: expected HH:MM-HH:MM", entry)
		}
		start, end = strings.TrimSpace(start), strings.TrimSpace(end)
		if !calendar.ValidHHMM(start) || !calendar.ValidHHMM(end) {
			return nil, fmt.Errorf("invalid slot window %q: times must be HH:MM", entry)
		}

		seeds = append(seeds, model.SlotSeed{
			SlotID:   strings.ReplaceAll(start, ":", ""),
			Start:    start,
			End:      end,
			Capacity: capacity,
		})
	}

	if len(seeds) == 0 {
		return nil, fmt.Errorf("slot template is empty")
	}
	return seeds, nil
}
