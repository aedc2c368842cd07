package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"dormly/pkg/calendar"
	"dormly/pkg/logger"
	"dormly/pkg/model"

	"github.com/go-playground/validator/v10"
)

const MaxRequesterIDLength = 128

var (
	slotIDRegex = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		log.Fatal("Failed to register 'hhmm' validator", "error", err)
	}
	if err := v.RegisterValidation("slot_id", validateSlotID); err != nil {
		log.Fatal("Failed to register 'slot_id' validator", "error", err)
	}

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

func validateHHMM(fl validator.FieldLevel) bool {
	return calendar.ValidHHMM(fl.Field().String())
}

func validateSlotID(fl validator.FieldLevel) bool {
	return slotIDRegex.MatchString(fl.Field().String())
}

func (v *ReservationValidator) ValidateDateKey(dateKey string) error {
	if err := v.validate.Var(dateKey, "required,datetime=2006-01-02"); err != nil {
		return ValidationErrors{{
			Field:   "date_key",
			Message: "date_key must be a calendar date in YYYY-MM-DD format",
		}}
	}
	return nil
}

func (v *ReservationValidator) ValidateRequesterID(requesterID string) error {
	if strings.TrimSpace(requesterID) == "" {
		return ValidationErrors{{Field: "requester_id", Message: "requester_id is required"}}
	}
	if len(requesterID) > MaxRequesterIDLength {
		return ValidationErrors{{
			Field:   "requester_id",
			Message: fmt.Sprintf("requester_id must be at most %d characters", MaxRequesterIDLength),
		}}
	}
	return nil
}

func (v *ReservationValidator) ValidateSlotID(slotID string) error {
	if err := v.validate.Var(slotID, "required,min=1,max=32,slot_id"); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs, "slot_id")
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) ValidateBookingRequest(req *model.BookingRequest) error {
	if req == nil {
		return ValidationErrors{{Field: "slot_id", Message: "slot_id is required"}}
	}
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs, "")
		}
		return err
	}
	return nil
}

// ValidateSeed checks an administrative slot batch. Slot ids must be unique
// within the batch and each window must end after it starts.
func (v *ReservationValidator) ValidateSeed(req *model.SeedDayRequest, maxCapacity int) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs, "")
		}
		return err
	}

	var errs ValidationErrors
	seen := make(map[string]struct{}, len(req.Slots))
	for i, s := range req.Slots {
		field := fmt.Sprintf("slots[%d]", i)
		if _, dup := seen[s.SlotID]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".slot_id",
				Message: fmt.Sprintf("duplicate slot_id %q", s.SlotID),
			})
		}
		seen[s.SlotID] = struct{}{}

		if s.End <= s.Start {
			errs = append(errs, ValidationError{
				Field:   field + ".end",
				Message: "end must be after start",
			})
		}
		if maxCapacity > 0 && s.Capacity > maxCapacity {
			errs = append(errs, ValidationError{
				Field:   field + ".capacity",
				Message: fmt.Sprintf("capacity must be at most %d", maxCapacity),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors, fieldOverride string) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := err.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		if fieldOverride != "" {
			field = fieldOverride
		}

		message := err.Error()
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "hhmm":
			message = fmt.Sprintf("%s must be a zero-padded 24-hour time (HH:MM)", field)
		case "slot_id":
			message = fmt.Sprintf("%s may only contain letters, digits and dashes", field)
		case "datetime":
			message = fmt.Sprintf("%s must be in %s format", field, err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}
