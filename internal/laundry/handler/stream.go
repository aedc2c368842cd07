package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"dormly/internal/laundry/service"
	httputil "dormly/pkg/http"
	"dormly/pkg/logger"
)

const (
	EventCatalog = "catalog"
	EventHistory = "history"

	DefaultHeartbeat = 15 * time.Second
)

// StreamHandler serves live subscriptions as Server-Sent Events. Each event
// carries a complete snapshot; clients never apply deltas.
type StreamHandler struct {
	catalog   service.CatalogService
	history   service.HistoryService
	log       *logger.Logger
	heartbeat time.Duration
}

func NewStreamHandler(catalog service.CatalogService, history service.HistoryService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		catalog:   catalog,
		history:   history,
		log:       log,
		heartbeat: DefaultHeartbeat,
	}
}

func (h *StreamHandler) Day(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requesterID := requireRequester(w, r, h.log, "StreamDay")
	if requesterID == "" {
		return
	}

	updates, err := h.catalog.WatchDay(r.Context(), ps.ByName("date"), requesterID)
	if err != nil {
		writeError(w, h.log, "StreamDay", err)
		return
	}
	serve(w, r, h.log, h.heartbeat, EventCatalog, updates)
}

func (h *StreamHandler) History(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requesterID := requireRequester(w, r, h.log, "StreamHistory")
	if requesterID == "" {
		return
	}

	updates, err := h.history.Watch(r.Context(), requesterID)
	if err != nil {
		writeError(w, h.log, "StreamHistory", err)
		return
	}
	serve(w, r, h.log, h.heartbeat, EventHistory, updates)
}

// serve relays snapshots until the client leaves or the source closes.
func serve[T any](w http.ResponseWriter, r *http.Request, log *logger.Logger, heartbeat time.Duration, event string, updates <-chan T) {
	stream, err := httputil.NewEventStream(w)
	if err != nil {
		log.Error("failed to open event stream", "event", event, "error", err)
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := stream.Ping(); err != nil {
				return
			}
		case snapshot, ok := <-updates:
			if !ok {
				log.Debug("event source closed", "event", event, "path", r.URL.Path)
				return
			}
			if err := stream.Send(event, snapshot); err != nil {
				log.Debug("event stream write failed", "event", event, "error", err)
				return
			}
		}
	}
}

// RegisterStreamRoutes is registered on the stream router, which skips the
// request timeout and idempotency layers.
func (h *StreamHandler) RegisterStreamRoutes(router *httprouter.Router) {
	router.GET("/api/v1/laundry/stream/days/:date/slots", h.Day)
	router.GET("/api/v1/laundry/stream/history", h.History)
}
