package backend

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
	"sync"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/metrics"
)

const (
	defaultTimeout           = 15 * time.Second
	errorBodyReadLimit int64 = 4096
	bodyReadLimit      int64 = 4 << 20
)

var errBaseURLRequired = errors.New("backend base url is required")

// Session is the credential surface the client reads on every request.
// HandleUnauthorized is invoked when an authenticated request answers 401.
type Session interface {
	Token() string
	HandleUnauthorized(ctx context.Context)
}

// Client is the REST boundary to the storefront backend. Every endpoint
// normalizes its response into one canonical shape before returning.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
	metrics    *metrics.ClientMetrics

	mu      sync.RWMutex
	session Session
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logger = logg
		}
	}
}

// WithMetrics attaches request metrics.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds the REST client from backend config.
func NewClient(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		logger:     logger.Nop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.baseURL == "" {
		return nil, errBaseURLRequired
	}
	return client, nil
}

// Bind attaches the session that supplies bearer tokens and reacts to 401s.
func (c *Client) Bind(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) currentSession() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// call describes one backend round-trip. endpoint is the metrics label.
type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any
}

// do executes the call and returns the raw 2xx body. Non-2xx answers and
// transport failures come back as typed errors.
func (c *Client) do(ctx context.Context, rc call) ([]byte, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backend client not configured")
	}
	start := time.Now()

	var reader io.Reader
	if rc.body != nil {
		payload, err := json.Marshal(rc.body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("marshal %s request", rc.endpoint))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, c.buildURL(rc.path, rc.query), reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", rc.endpoint))
	}
	req.Header.Set("Accept", "application/json")
	if rc.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	sess := c.currentSession()
	authenticated := false
	if sess != nil {
		if token := strings.TrimSpace(sess.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			authenticated = true
		}
	}

	c.log(ctx, "request", rc, map[string]any{
		"method":        rc.method,
		"path":          rc.path,
		"query":         redactQuery(rc.query),
		"authenticated": authenticated,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		typed := transportError(ctx, rc.endpoint, err)
		c.finish(ctx, rc, start, 0, typed)
		return nil, typed
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		typed := statusError(rc.endpoint, resp.StatusCode, raw)
		c.finish(ctx, rc, start, resp.StatusCode, typed)
		if resp.StatusCode == http.StatusUnauthorized && authenticated {
			sess.HandleUnauthorized(ctx)
		}
		return nil, typed
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyReadLimit))
	if err != nil {
		typed := pkgerrors.Wrap(pkgerrors.CodeUnreachable, err, fmt.Sprintf("read %s response", rc.endpoint))
		c.finish(ctx, rc, start, resp.StatusCode, typed)
		return nil, typed
	}
	c.finish(ctx, rc, start, resp.StatusCode, nil)
	return body, nil
}

// doJSON runs the call and decodes a non-empty body into out.
func (c *Client) doJSON(ctx context.Context, rc call, out any) error {
	body, err := c.do(ctx, rc)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", rc.endpoint))
	}
	return nil
}

func (c *Client) finish(ctx context.Context, rc call, start time.Time, status int, err error) {
	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = string(pkgerrors.CodeOf(err))
	}
	c.metrics.ObserveRequest(rc.endpoint, outcome, elapsed)

	fields := map[string]any{
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		c.log(ctx, "error", rc, fields)
		return
	}
	c.log(ctx, "response", rc, fields)
}

func (c *Client) log(ctx context.Context, phase string, rc call, fields map[string]any) {
	if c.logger == nil {
		return
	}
	logFields := map[string]any{
		"endpoint": rc.endpoint,
		"phase":    phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Warn(ctx, fmt.Sprintf("backend %s failed", rc.endpoint))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("backend %s", phase))
	}
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func redactQuery(q url.Values) map[string]any {
	if len(q) == 0 {
		return nil
	}
	out := make(map[string]any, len(q))
	for k := range q {
		out[k] = logger.Redact(k, q.Get(k))
	}
	return out
}

func transportError(ctx context.Context, endpoint string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("%s request canceled", endpoint))
	}
	return pkgerrors.Wrap(pkgerrors.CodeUnreachable, err, pkgerrors.MetadataFor(pkgerrors.CodeUnreachable).PublicMessage)
}

// statusError converts a non-2xx answer into a typed error carrying the
// backend's {error|message} text when present.
func statusError(endpoint string, status int, body []byte) error {
	code := domainCodeForStatus(status)
	backendText := strings.TrimSpace(string(body))
	if json.Valid(body) {
		var env envelope
		_ = json.Unmarshal(body, &env)
		backendText = env.text("")
	}

	cause := fmt.Errorf("%s: status %d", endpoint, status)
	switch {
	case status >= 500:
		err := pkgerrors.Wrap(code, cause, pkgerrors.MetadataFor(code).PublicMessage)
		if backendText != "" {
			err = err.WithDetails(map[string]string{"backend": backendText})
		}
		return err
	case status == http.StatusForbidden:
		return pkgerrors.Wrap(code, cause, pkgerrors.MetadataFor(code).PublicMessage)
	}
	return pkgerrors.Wrap(code, cause, firstString(backendText, pkgerrors.MetadataFor(code).PublicMessage))
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

// businessError turns an explicit success=false envelope into a typed error.
func businessError(env envelope, fallback string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, env.text(fallback))
}
