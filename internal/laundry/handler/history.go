package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"dormly/internal/laundry/service"
	"dormly/pkg/logger"
)

type HistoryHandler struct {
	history service.HistoryService
	log     *logger.Logger
}

func NewHistoryHandler(history service.HistoryService, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		log:     log,
	}
}

func (h *HistoryHandler) Next(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requesterID := requireRequester(w, r, h.log, "Next")
	if requesterID == "" {
		return
	}

	next, err := h.history.Next(r.Context(), requesterID)
	if err != nil {
		writeError(w, h.log, "Next", err)
		return
	}
	writeSuccess(w, h.log, "Next", next)
}

func (h *HistoryHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/laundry/history/next", h.Next)
}
