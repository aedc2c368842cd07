package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"dormly/internal/laundry/service"
	"dormly/pkg/logger"
	"dormly/pkg/model"
)

// AdminHandler serves slot seeding and maintenance. It sits behind whatever
// guards the admin prefix at the edge; it does not authenticate.
type AdminHandler struct {
	admin   service.AdminService
	history service.HistoryService
	log     *logger.Logger
}

func NewAdminHandler(admin service.AdminService, history service.HistoryService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		admin:   admin,
		history: history,
		log:     log,
	}
}

func (h *AdminHandler) SeedDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.SeedDayRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, "SeedDay", err)
		return
	}

	result, err := h.admin.SeedDay(r.Context(), ps.ByName("date"), &req)
	if err != nil {
		writeError(w, h.log, "SeedDay", err)
		return
	}
	writeSuccess(w, h.log, "SeedDay", result)
}

func (h *AdminHandler) AuditDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	audit, err := h.admin.AuditDay(r.Context(), ps.ByName("date"))
	if err != nil {
		writeError(w, h.log, "AuditDay", err)
		return
	}
	writeSuccess(w, h.log, "AuditDay", audit)
}

type rebuildResponse struct {
	RequesterID string `json:"requester_id"`
	Bookings    int    `json:"bookings"`
}

func (h *AdminHandler) RebuildHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requesterID := ps.ByName("requester")

	n, err := h.history.Rebuild(r.Context(), requesterID)
	if err != nil {
		writeError(w, h.log, "RebuildHistory", err)
		return
	}
	writeSuccess(w, h.log, "RebuildHistory", rebuildResponse{RequesterID: requesterID, Bookings: n})
}

func (h *AdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.PUT("/api/v1/laundry/admin/days/:date/slots", h.SeedDay)
	router.GET("/api/v1/laundry/admin/days/:date/audit", h.AuditDay)
	router.POST("/api/v1/laundry/admin/history/:requester/rebuild", h.RebuildHistory)
}
