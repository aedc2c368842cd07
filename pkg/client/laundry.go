package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	apperrors "dormly/pkg/errors"
	"dormly/pkg/model"
)

const (
	requesterHeader   = "X-Requester-ID"
	idempotencyHeader = "Idempotency-Key"
)

// LaundryClient talks to the laundry API on behalf of one requester. Failed
// calls return the server's error as an *apperrors.AppError.
type LaundryClient struct {
	httpClient *HttpClient
}

func NewLaundryClient(baseURL, requesterID string) *LaundryClient {
	httpClient := NewHttpClient(baseURL)
	httpClient.Headers[requesterHeader] = requesterID
	return &LaundryClient{httpClient: httpClient}
}

func (c *LaundryClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *LaundryClient) Days(ctx context.Context) ([]model.BookableDay, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/laundry/days")
	if err != nil {
		return nil, err
	}
	var days []model.BookableDay
	return days, decodeData(resp, http.StatusOK, &days)
}

func (c *LaundryClient) Day(ctx context.Context, dateKey string) (*model.DayCatalog, error) {
	resp, err := c.httpClient.GET(ctx, dayPath(dateKey, "slots"))
	if err != nil {
		return nil, err
	}
	var catalog model.DayCatalog
	if err := decodeData(resp, http.StatusOK, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *LaundryClient) Booking(ctx context.Context, dateKey string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, dayPath(dateKey, "booking"))
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp, http.StatusOK)
}

// Book reserves slotID. A non-empty idempotencyKey makes retries of the same
// request safe.
func (c *LaundryClient) Book(ctx context.Context, dateKey, slotID, idempotencyKey string) (*model.Booking, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{idempotencyHeader: idempotencyKey}
	}
	resp, err := c.httpClient.POSTWithHeaders(ctx, dayPath(dateKey, "booking"), model.BookingRequest{SlotID: slotID}, headers)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp, http.StatusCreated)
}

func (c *LaundryClient) Move(ctx context.Context, dateKey, slotID string) (*model.Booking, error) {
	resp, err := c.httpClient.PUT(ctx, dayPath(dateKey, "booking"), model.BookingRequest{SlotID: slotID})
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp, http.StatusOK)
}

func (c *LaundryClient) Cancel(ctx context.Context, dateKey string) error {
	resp, err := c.httpClient.DELETE(ctx, dayPath(dateKey, "booking"))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}
	return nil
}

func (c *LaundryClient) Next(ctx context.Context) (*model.NextBooking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/laundry/history/next")
	if err != nil {
		return nil, err
	}
	var next model.NextBooking
	if err := decodeData(resp, http.StatusOK, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (c *LaundryClient) SeedDay(ctx context.Context, dateKey string, req *model.SeedDayRequest) (*model.SeedResult, error) {
	resp, err := c.httpClient.PUT(ctx, "/api/v1/laundry/admin/days/"+url.PathEscape(dateKey)+"/slots", req)
	if err != nil {
		return nil, err
	}
	var result model.SeedResult
	if err := decodeData(resp, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *LaundryClient) AuditDay(ctx context.Context, dateKey string) (*model.DayAudit, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/laundry/admin/days/"+url.PathEscape(dateKey)+"/audit")
	if err != nil {
		return nil, err
	}
	var audit model.DayAudit
	if err := decodeData(resp, http.StatusOK, &audit); err != nil {
		return nil, err
	}
	return &audit, nil
}

func dayPath(dateKey, resource string) string {
	return "/api/v1/laundry/days/" + url.PathEscape(dateKey) + "/" + resource
}

func decodeBooking(resp *Response, want int) (*model.Booking, error) {
	var booking model.Booking
	if err := decodeData(resp, want, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func decodeData(resp *Response, want int, target any) error {
	if resp.StatusCode != want {
		return decodeError(resp)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode response wrapper:\n%s\n%w", resp.ToString(), err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data:\n%s\n%w", resp.ToString(), err)
	}
	return nil
}

func decodeError(resp *Response) error {
	var errResp apperrors.ErrorResponse
	if err := resp.DecodeJSON(&errResp); err != nil || errResp.Code == "" {
		return apperrors.New(apperrors.CodeInternal, fmt.Sprintf("unexpected response: %s", resp.ToString()), resp.StatusCode)
	}
	return apperrors.New(errResp.Code, errResp.Message, resp.StatusCode).WithDetails(errResp.Details)
}
