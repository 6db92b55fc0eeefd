package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultAPIBaseURL is used when no override is configured
const DefaultAPIBaseURL = "https://imc-api-tk-157114594912.us-central1.run.app"

// DefaultRequestTimeout bounds a single backend call
const DefaultRequestTimeout = 30 * time.Second

// Client talks to the IslamicMasterclass REST API. Every outgoing request
// carries the live session token, read from the repository right before
// dispatch. No retries, status handling is left to the typed wrappers and
// their callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionRepository
	logger     Logger
	userAgent  string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets the underlying http client. Its transport is wrapped
// to inject the bearer token.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSessionRepository sets where the bearer token is read from
func WithSessionRepository(repo SessionRepository) ClientOption {
	return func(c *Client) {
		c.sessions = repo
	}
}

// WithClientLogger sets the logger
func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates an API client. Without a session repository requests
// go out anonymous.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultAPIBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
		userAgent: "go-imc-auth",
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = normalizeLogger(c.logger)
	c.httpClient = c.bearerClient(c.httpClient)
	return c
}

// NewClientFromConfig wires a client out of configuration
func NewClientFromConfig(cfg Config, repo SessionRepository, logger Logger) *Client {
	return NewClient(
		WithBaseURL(cfg.GetAPIBaseURL()),
		WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		WithSessionRepository(repo),
		WithClientLogger(logger),
	)
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Sessions returns the repository the token is read from
func (c *Client) Sessions() SessionRepository {
	return c.sessions
}

// WithSessions returns a copy of the client bound to another repository.
// The gateway uses it to get one client per request.
func (c *Client) WithSessions(repo SessionRepository) *Client {
	cp := *c
	cp.sessions = repo

	hc := *c.httpClient
	if bt, ok := hc.Transport.(*bearerTransport); ok {
		hc.Transport = &bearerTransport{base: bt.base, client: &cp}
	}
	cp.httpClient = &hc
	return &cp
}

func (c *Client) bearerClient(hc *http.Client) *http.Client {
	cp := *hc
	base := cp.Transport
	if bt, ok := base.(*bearerTransport); ok {
		base = bt.base
	}
	if base == nil {
		base = http.DefaultTransport
	}
	cp.Transport = &bearerTransport{base: base, client: c}
	return &cp
}

// bearerTransport sets Authorization on every request when the live
// session has a token, and leaves the request untouched otherwise.
type bearerTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.client.token(req.Context())
	if token == "" {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(r)
}

func (c *Client) token(ctx context.Context) string {
	if c.sessions == nil {
		return ""
	}
	session, err := c.sessions.Get(ctx)
	if err != nil {
		c.logger.Error("could not read session for request: %v", err)
		return ""
	}
	return session.Token
}

// Do performs a JSON request. body is encoded when not nil, out decoded
// when not nil and the response has content.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "backend unreachable").
			WithCode(http.StatusBadGateway).
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	defer resp.Body.Close()

	c.logger.Debug("%s %s -> %d", method, path, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp).WithMetadata(map[string]any{"method": method, "path": path})
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to decode response").
			WithCode(http.StatusBadGateway).
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	return nil
}

// Get is Do with GET
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post is Do with POST
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put is Do with PUT
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch is Do with PATCH
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete is Do with DELETE
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// APIError is a non 2xx answer from the backend. Client calls return it
// inside a categorized error, see NewAPIError; reach it with errors.As.
type APIError struct {
	Status  int
	Detail  string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// UserMessage returns text fit to show a user, falling back to the given
// default when the backend gave no explanation.
func (e *APIError) UserMessage(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// NewAPIError wraps a backend answer in an error categorized by its
// status: 401 is auth, 403 authz, 404 not found, 422 validation and 5xx
// external.
func NewAPIError(status int, detail string) *goerrors.Error {
	return (&APIError{Status: status, Detail: detail}).categorized()
}

func (e *APIError) categorized() *goerrors.Error {
	return goerrors.Wrap(e, categoryForStatus(e.Status), e.Error()).
		WithCode(e.Status).
		WithTextCode(goerrors.HTTPStatusToTextCode(e.Status))
}

func newAPIError(resp *http.Response) *goerrors.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode, Body: string(body)}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Message
		apiErr.Detail = detailText(payload.Detail)
	}
	return apiErr.categorized()
}

// detail is a string for HTTPException and a list of objects for
// request validation errors.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// ErrorMessage returns what a view shows when a call fails: the field
// errors of a validation failure, the backend explanation, or fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && len(richErr.ValidationErrors) > 0 {
		return richErr.ValidationErrors.Error()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage(fallback)
	}
	return fallback
}
