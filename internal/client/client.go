// Package client talks to the Orders and Upload resources over HTTP. Every
// call returns (value, error); the error distinguishes transport failures,
// server-reported failures and malformed responses so callers can branch on
// the outcome.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dharsanguruparan/IntakeDesk/internal/model"
)

var (
	// ErrTransport wraps failures where the request never completed.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse wraps bodies that cannot be decoded into the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

const maxResponseBytes = 4 << 20

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client issues requests against an IntakeDesk API base URL such as
// http://localhost:8001.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client. A nil httpClient means http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// ListOrders reads the full order collection.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/orders/", "", nil)
	if err != nil {
		return nil, err
	}
	var orders []model.Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("%w: decode orders: %w", ErrMalformedResponse, err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// CreateOrder sends a create request. The response body is not inspected.
func (c *Client) CreateOrder(ctx context.Context, req model.CreateOrderRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/api/orders/", "application/json", bytes.NewReader(payload))
	return err
}

// DeleteOrder deletes the order identified by id.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/orders/"+strconv.FormatInt(id, 10)+"/", "", nil)
	return err
}

// Upload posts r as a multipart form with a single file field named "file"
// and returns the decoded JSON object.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (map[string]any, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/api/upload/", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return decodeObject(body)
}

// Health calls the upload health endpoint.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/upload/health/", "", nil)
	if err != nil {
		return nil, err
	}
	return decodeObject(body)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

func decodeObject(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode object: %w", ErrMalformedResponse, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}
	return out, nil
}

// errorMessage pulls the "error" field out of a JSON error body, falling back
// to the trimmed raw text.
func errorMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		if payload.Details != "" {
			return payload.Error + ": " + payload.Details
		}
		return payload.Error
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
