package handler

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"dormly/internal/laundry/service"
	"dormly/internal/laundry/validator"
	apperrors "dormly/pkg/errors"
	httputil "dormly/pkg/http"
	"dormly/pkg/logger"
	"dormly/pkg/model"
)

type ReservationHandler struct {
	reservations service.ReservationService
	catalog      service.CatalogService
	validator    *validator.ReservationValidator
	log          *logger.Logger
}

func NewReservationHandler(
	reservations service.ReservationService,
	catalog service.CatalogService,
	validator *validator.ReservationValidator,
	log *logger.Logger,
) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		catalog:      catalog,
		validator:    validator,
		log:          log,
	}
}

func (h *ReservationHandler) Days(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if requireRequester(w, r, h.log, "Days") == "" {
		return
	}
	writeSuccess(w, h.log, "Days", h.catalog.Days(r.Context()))
}

func (h *ReservationHandler) GetDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requesterID := requireRequester(w, r, h.log, "GetDay")
	if requesterID == "" {
		return
	}

	catalog, err := h.catalog.GetDay(r.Context(), ps.ByName("date"), requesterID)
	if err != nil {
		writeError(w, h.log, "GetDay", err)
		return
	}
	writeSuccess(w, h.log, "GetDay", catalog)
}

func (h *ReservationHandler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requesterID := requireRequester(w, r, h.log, "GetBooking")
	if requesterID == "" {
		return
	}

	booking, err := h.reservations.GetBooking(r.Context(), ps.ByName("date"), requesterID)
	if err != nil {
		writeError(w, h.log, "GetBooking", err)
		return
	}
	writeSuccess(w, h.log, "GetBooking", booking)
}

func (h *ReservationHandler) Book(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requesterID := requireRequester(w, r, h.log, "Book")
	if requesterID == "" {
		return
	}

	req, err := h.decodeBookingRequest(r)
	if err != nil {
		writeError(w, h.log, "Book", err)
		return
	}

	booking, err := h.reservations.Book(r.Context(), ps.ByName("date"), requesterID, req.SlotID)
	if err != nil {
		writeError(w, h.log, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Move(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requesterID := requireRequester(w, r, h.log, "Move")
	if requesterID == "" {
		return
	}

	req, err := h.decodeBookingRequest(r)
	if err != nil {
		writeError(w, h.log, "Move", err)
		return
	}

	booking, err := h.reservations.Move(r.Context(), ps.ByName("date"), requesterID, req.SlotID)
	if err != nil {
		writeError(w, h.log, "Move", err)
		return
	}
	writeSuccess(w, h.log, "Move", booking)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requesterID := requireRequester(w, r, h.log, "Cancel")
	if requesterID == "" {
		return
	}

	if err := h.reservations.Cancel(r.Context(), ps.ByName("date"), requesterID); err != nil {
		writeError(w, h.log, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) decodeBookingRequest(r *http.Request) (*model.BookingRequest, error) {
	var req model.BookingRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := h.validator.ValidateBookingRequest(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return nil, apperrors.Validation("Invalid booking request", map[string]any{"errors": validationErrs})
		}
		return nil, apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}
	return &req, nil
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/laundry/days", h.Days)
	router.GET("/api/v1/laundry/days/:date/slots", h.GetDay)
	router.GET("/api/v1/laundry/days/:date/booking", h.GetBooking)
	router.POST("/api/v1/laundry/days/:date/booking", h.Book)
	router.PUT("/api/v1/laundry/days/:date/booking", h.Move)
	router.DELETE("/api/v1/laundry/days/:date/booking", h.Cancel)
}
