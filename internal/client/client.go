// Package client talks to the ParkSafe API over HTTP and the realtime
// websocket. Client implements feed.Store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parksafe/parksafe/internal/feed"
	"github.com/parksafe/parksafe/internal/model"
)

const apiPrefix = "/api/v1"

// Collection routes per table
var routes = map[string]string{
	model.TableMessages: apiPrefix + "/messages",
	model.TableAlerts:   apiPrefix + "/alerts",
}

// Client is an HTTP + websocket client for one signed-in user
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer

	baseBackoff      time.Duration
	maxBackoff       time.Duration
	subscribeTimeout time.Duration

	mu     sync.Mutex
	token  string
	stream *stream
}

// New creates a client for the API at baseURL, e.g. http://localhost:8080
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		dialer:           &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		baseBackoff:      time.Second,
		maxBackoff:       30 * time.Second,
		subscribeTimeout: 10 * time.Second,
	}
}

// SetToken sets the bearer token used for every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Close shuts the realtime connection down. Open subscriptions stop
// receiving events.
func (c *Client) Close() {
	c.mu.Lock()
	s := c.stream
	c.stream = nil
	c.mu.Unlock()

	if s != nil {
		s.close()
	}
}

// ==================== feed.Store ====================

// BulkRead lists the newest rows of table. The API always orders by
// created_at descending.
func (c *Client) BulkRead(ctx context.Context, table string, q feed.Query) ([]json.RawMessage, error) {
	route, err := routeFor(table)
	if err != nil {
		return nil, err
	}
	if q.OrderBy != "" && (q.OrderBy != "created_at" || !q.Descending) {
		return nil, fmt.Errorf("%w: %s can only be ordered by created_at descending", feed.ErrValidation, table)
	}

	params := url.Values{}
	for column, value := range q.Filter {
		params.Set(column, value)
	}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprint(q.Limit))
	}
	if q.Before != "" {
		params.Set("before", q.Before)
	}

	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodGet, route, params, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Write inserts row into table and returns the stored row
func (c *Client) Write(ctx context.Context, table string, row any) (json.RawMessage, error) {
	route, err := routeFor(table)
	if err != nil {
		return nil, err
	}

	var stored json.RawMessage
	if err := c.do(ctx, http.MethodPost, route, nil, row, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// PointRead fetches one row of table by id
func (c *Client) PointRead(ctx context.Context, table, key string) (json.RawMessage, error) {
	route, err := routeFor(table)
	if err != nil {
		return nil, err
	}

	var row json.RawMessage
	if err := c.do(ctx, http.MethodGet, route+"/"+url.PathEscape(key), nil, nil, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// Subscribe delivers pushed changes of table to fn. The subscription is
// confirmed by the server before Subscribe returns.
func (c *Client) Subscribe(ctx context.Context, table string, kinds []feed.EventKind, fn func(feed.Event)) (feed.Subscription, error) {
	c.mu.Lock()
	if c.stream == nil {
		c.stream = newStream(c)
	}
	s := c.stream
	c.mu.Unlock()

	return s.subscribe(ctx, table, kinds, fn)
}

// OnReconnect registers fn to run after the realtime connection was
// re-established. Changes made while disconnected were not delivered.
func (c *Client) OnReconnect(fn func()) {
	c.mu.Lock()
	if c.stream == nil {
		c.stream = newStream(c)
	}
	s := c.stream
	c.mu.Unlock()

	s.onReconnect(fn)
}

func routeFor(table string) (string, error) {
	route, ok := routes[table]
	if !ok {
		return "", fmt.Errorf("%w: unknown table %q", feed.ErrValidation, table)
	}
	return route, nil
}

// ==================== HTTP ====================

// do sends one JSON request and decodes the JSON response into result.
// Errors wrap feed.ErrValidation, feed.ErrNotFound or feed.ErrTransport.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, result any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshaling request body: %v", feed.ErrValidation, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", feed.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", feed.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response body: %v", feed.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, path, resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: decoding %s %s response: %v", feed.ErrTransport, method, path, err)
		}
	}
	return nil
}

// statusError maps a failed response onto the feed error kinds
func statusError(method, path string, status int, body []byte) error {
	msg := http.StatusText(status)
	var apiErr model.ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
		if apiErr.Message != "" {
			msg += ": " + apiErr.Message
		}
	}

	kind := feed.ErrTransport
	switch status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		kind = feed.ErrValidation
	case http.StatusNotFound:
		kind = feed.ErrNotFound
	}
	return &StatusError{Status: status, err: fmt.Errorf("%w: %s %s (%d): %s", kind, method, path, status, msg)}
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Status int
	err    error
}

func (e *StatusError) Error() string { return e.err.Error() }
func (e *StatusError) Unwrap() error { return e.err }
