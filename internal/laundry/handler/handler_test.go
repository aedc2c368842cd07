package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormly/internal/laundry/validator"
	apperrors "dormly/pkg/errors"
	httputil "dormly/pkg/http"
	"dormly/pkg/logger"
	"dormly/pkg/model"
)

type stubReservations struct {
	book   func(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error)
	cancel func(ctx context.Context, dateKey, requesterID string) error
	move   func(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error)
	get    func(ctx context.Context, dateKey, requesterID string) (*model.Booking, error)
}

func (s *stubReservations) Book(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error) {
	return s.book(ctx, dateKey, requesterID, slotID)
}

func (s *stubReservations) Cancel(ctx context.Context, dateKey, requesterID string) error {
	return s.cancel(ctx, dateKey, requesterID)
}

func (s *stubReservations) Move(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error) {
	return s.move(ctx, dateKey, requesterID, slotID)
}

func (s *stubReservations) GetBooking(ctx context.Context, dateKey, requesterID string) (*model.Booking, error) {
	return s.get(ctx, dateKey, requesterID)
}

type stubCatalog struct {
	updates chan *model.DayCatalog
}

func (s *stubCatalog) Days(ctx context.Context) []model.BookableDay {
	return []model.BookableDay{{DateKey: "2024-03-10", Label: "Today"}}
}

func (s *stubCatalog) GetDay(ctx context.Context, dateKey, requesterID string) (*model.DayCatalog, error) {
	if dateKey == "bad" {
		return nil, apperrors.Validation("Invalid date", nil)
	}
	return &model.DayCatalog{DateKey: dateKey, DayLabel: "Today", Slots: []model.SlotView{{SlotID: "S1"}}}, nil
}

func (s *stubCatalog) WatchDay(ctx context.Context, dateKey, requesterID string) (<-chan *model.DayCatalog, error) {
	return s.updates, nil
}

type stubHistory struct {
	next func(ctx context.Context, requesterID string) (*model.NextBooking, error)
}

func (s *stubHistory) Next(ctx context.Context, requesterID string) (*model.NextBooking, error) {
	return s.next(ctx, requesterID)
}

func (s *stubHistory) Watch(ctx context.Context, requesterID string) (<-chan model.HistorySnapshot, error) {
	return nil, apperrors.Unavailable("History updates")
}

func (s *stubHistory) Rebuild(ctx context.Context, requesterID string) (int, error) {
	return 3, nil
}

func newRouter(reservations *stubReservations, catalog *stubCatalog, history *stubHistory) *httprouter.Router {
	log := logger.Discard()
	router := httprouter.New()
	Handlers{
		NewReservationHandler(reservations, catalog, validator.NewReservationValidator(log), log),
		NewHistoryHandler(history, log),
	}.RegisterRoutes(router)
	NewStreamHandler(catalog, history, log).RegisterStreamRoutes(router)
	return router
}

func do(router http.Handler, method, path, requester, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if requester != "" {
		req.Header.Set(httputil.RequesterIDHeader, requester)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestBook(t *testing.T) {
	var gotDate, gotRequester, gotSlot string
	reservations := &stubReservations{
		book: func(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error) {
			gotDate, gotRequester, gotSlot = dateKey, requesterID, slotID
			return &model.Booking{DateKey: dateKey, RequesterID: requesterID, SlotID: slotID}, nil
		},
	}
	router := newRouter(reservations, &stubCatalog{}, &stubHistory{})

	rec := do(router, http.MethodPost, "/api/v1/laundry/days/2024-03-10/booking", "A", `{"slot_id":"S1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2024-03-10", gotDate)
	assert.Equal(t, "A", gotRequester)
	assert.Equal(t, "S1", gotSlot)

	var resp struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "S1", resp.Data.SlotID)
}

func TestBook_Errors(t *testing.T) {
	reservations := &stubReservations{
		book: func(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error) {
			return nil, apperrors.SlotFull(dateKey, slotID)
		},
	}
	router := newRouter(reservations, &stubCatalog{}, &stubHistory{})

	tests := []struct {
		name      string
		requester string
		body      string
		status    int
		code      string
	}{
		{"slot full", "A", `{"slot_id":"S1"}`, http.StatusConflict, apperrors.CodeSlotFull},
		{"missing requester", "", `{"slot_id":"S1"}`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"malformed body", "A", `{"slot_id":`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"unknown field", "A", `{"slot":"S1"}`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"missing slot", "A", `{}`, http.StatusUnprocessableEntity, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, "/api/v1/laundry/days/2024-03-10/booking", tt.requester, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestCancel(t *testing.T) {
	reservations := &stubReservations{
		cancel: func(ctx context.Context, dateKey, requesterID string) error {
			if requesterID == "nobody" {
				return apperrors.BookingNotFound(dateKey)
			}
			return nil
		},
	}
	router := newRouter(reservations, &stubCatalog{}, &stubHistory{})

	rec := do(router, http.MethodDelete, "/api/v1/laundry/days/2024-03-10/booking", "A", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(router, http.MethodDelete, "/api/v1/laundry/days/2024-03-10/booking", "nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.CodeBookingNotFound, errorCode(t, rec))
}

func TestMove(t *testing.T) {
	reservations := &stubReservations{
		move: func(ctx context.Context, dateKey, requesterID, slotID string) (*model.Booking, error) {
			return &model.Booking{DateKey: dateKey, SlotID: slotID}, nil
		},
	}
	router := newRouter(reservations, &stubCatalog{}, &stubHistory{})

	rec := do(router, http.MethodPut, "/api/v1/laundry/days/2024-03-10/booking", "A", `{"slot_id":"S2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetBookingAndTransactionFailure(t *testing.T) {
	reservations := &stubReservations{
		get: func(ctx context.Context, dateKey, requesterID string) (*model.Booking, error) {
			return nil, apperrors.TransactionFailed(context.DeadlineExceeded)
		},
	}
	router := newRouter(reservations, &stubCatalog{}, &stubHistory{})

	rec := do(router, http.MethodGet, "/api/v1/laundry/days/2024-03-10/booking", "A", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperrors.CodeTransactionFailed, errorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), "deadline", "causes are not leaked")
}

func TestDaysAndCatalog(t *testing.T) {
	router := newRouter(&stubReservations{}, &stubCatalog{}, &stubHistory{})

	rec := do(router, http.MethodGet, "/api/v1/laundry/days", "A", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"Today"`)

	rec = do(router, http.MethodGet, "/api/v1/laundry/days/2024-03-10/slots", "A", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slot_id":"S1"`)

	rec = do(router, http.MethodGet, "/api/v1/laundry/days/bad/slots", "A", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/laundry/days", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNextBooking(t *testing.T) {
	history := &stubHistory{
		next: func(ctx context.Context, requesterID string) (*model.NextBooking, error) {
			if requesterID == "B" {
				return nil, apperrors.NotFound("Upcoming reservation")
			}
			return &model.NextBooking{DateKey: "2024-03-11", DayLabel: "Monday", TimeRange: "7:00 AM – 8:00 AM"}, nil
		},
	}
	router := newRouter(&stubReservations{}, &stubCatalog{}, history)

	rec := do(router, http.MethodGet, "/api/v1/laundry/history/next", "A", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"day_label":"Monday"`)

	rec = do(router, http.MethodGet, "/api/v1/laundry/history/next", "B", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamDay(t *testing.T) {
	updates := make(chan *model.DayCatalog, 2)
	updates <- &model.DayCatalog{DateKey: "2024-03-10", Slots: []model.SlotView{{SlotID: "S1", BookedCount: 0}}}
	updates <- &model.DayCatalog{DateKey: "2024-03-10", Slots: []model.SlotView{{SlotID: "S1", BookedCount: 1}}}
	close(updates)

	router := newRouter(&stubReservations{}, &stubCatalog{updates: updates}, &stubHistory{})

	server := httptest.NewServer(router)
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/laundry/stream/days/2024-03-10/slots", nil)
	require.NoError(t, err)
	req.Header.Set(httputil.RequesterIDHeader, "A")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events, data []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			events = append(events, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}

	assert.Equal(t, []string{EventCatalog, EventCatalog}, events)
	require.Len(t, data, 2)
	assert.Contains(t, data[1], `"booked_count":1`)
}

func TestStreamHistory_Unavailable(t *testing.T) {
	router := newRouter(&stubReservations{}, &stubCatalog{}, &stubHistory{})

	rec := do(router, http.MethodGet, "/api/v1/laundry/stream/history", "A", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
