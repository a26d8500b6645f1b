// Package arena is the REST client for the debate backend's session
// lifecycle: template catalog, debate creation, start/stop, status polling,
// transcript fetch and health checks. Real-time events are not served here;
// they arrive over the websocket stream owned by pkg/session.
package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the debate backend REST API. Requests are not retried;
// errors surface to the caller, who decides whether to try again.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}
	return c
}

// newDefaultHTTPClient configures transport-level timeouts while keeping the
// overall request lifetime controlled by context deadlines.
func newDefaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// Health reports backend liveness and the available template names.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Templates lists the debate template catalog.
func (c *Client) Templates(ctx context.Context) ([]TemplateSummary, error) {
	var out struct {
		Templates []TemplateSummary `json:"templates"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// Template fetches one template's full configuration.
func (c *Client) Template(ctx context.Context, name string) (*Template, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewInvalidRequestError("template name is required", "name")
	}
	var out Template
	if err := c.doJSON(ctx, http.MethodGet, "/api/templates/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDebate creates a debate from a named template.
func (c *Client) CreateDebate(ctx context.Context, req CreateRequest) (*Debate, error) {
	if strings.TrimSpace(req.Template) == "" {
		return nil, NewInvalidRequestError("template is required", "template")
	}
	var out Debate
	if err := c.doJSON(ctx, http.MethodPost, "/api/debate/create", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCustomDebate creates a debate with user-defined positions. Invalid
// input is rejected locally before any network call.
func (c *Client) CreateCustomDebate(ctx context.Context, req CustomCreateRequest) (*Debate, error) {
	if err := validateCustomRequest(req); err != nil {
		return nil, err
	}
	var out Debate
	if err := c.doJSON(ctx, http.MethodPost, "/api/debate/create-custom", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func validateCustomRequest(req CustomCreateRequest) error {
	if strings.TrimSpace(req.Topic) == "" {
		return NewInvalidRequestError("topic is required", "topic")
	}
	if len(req.Positions) < 2 {
		return NewInvalidRequestError("at least 2 positions are required", "positions")
	}
	for i, pos := range req.Positions {
		if strings.TrimSpace(pos.Name) == "" {
			return NewInvalidRequestError(
				fmt.Sprintf("position %d has no name", i+1), "positions")
		}
	}
	return nil
}

// StartDebate asks the backend to begin running a created debate. Progress
// arrives over the event stream, not in this response.
func (c *Client) StartDebate(ctx context.Context, debateID string) (*StartResponse, error) {
	if strings.TrimSpace(debateID) == "" {
		return nil, NewInvalidRequestError("debate id is required", "debate_id")
	}
	var out StartResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/debate/"+url.PathEscape(debateID)+"/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StopDebate asks the backend to stop a debate. The session client observes
// the resulting stopped event on the stream.
func (c *Client) StopDebate(ctx context.Context, debateID string) error {
	if strings.TrimSpace(debateID) == "" {
		return NewInvalidRequestError("debate id is required", "debate_id")
	}
	return c.doJSON(ctx, http.MethodPost, "/api/debate/"+url.PathEscape(debateID)+"/stop", nil, nil)
}

// Status polls the current state of a debate.
func (c *Client) Status(ctx context.Context, debateID string) (*DebateStatus, error) {
	if strings.TrimSpace(debateID) == "" {
		return nil, NewInvalidRequestError("debate id is required", "debate_id")
	}
	var out DebateStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/debate/"+url.PathEscape(debateID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transcript fetches the backend-formatted transcript and statistics.
func (c *Client) Transcript(ctx context.Context, debateID string) (*Transcript, error) {
	if strings.TrimSpace(debateID) == "" {
		return nil, NewInvalidRequestError("debate id is required", "debate_id")
	}
	var out Transcript
	if err := c.doJSON(ctx, http.MethodGet, "/api/debate/"+url.PathEscape(debateID)+"/transcript", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	fullURL := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return &TransportError{Op: method, URL: fullURL, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method, URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransportError{Op: method, URL: fullURL, Err: err}
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{
			Type:    ErrAPI,
			Message: fmt.Sprintf("invalid response body: %v", err),
			Status:  resp.StatusCode,
		}
	}
	return nil
}

// decodeAPIError maps the backend's {"error": "..."} body onto a canonical
// error, falling back to the raw body when the shape is unexpected.
func decodeAPIError(status int, data []byte) *Error {
	var body struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		message = body.Error
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{
		Type:    errorTypeForStatus(status),
		Message: message,
		Status:  status,
	}
}
