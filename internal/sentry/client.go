package sentry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"crashgate/internal/models"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 64 << 10

	// ClientName is reported in the auth header.
	ClientName = "crashgate/1.0"
)

var (
	ErrUnauthorized = errors.New("sentry: credentials rejected")
	ErrRateLimited  = errors.New("sentry: rate limited")
	ErrClosed       = errors.New("sentry: client closed")
)

// StatusError is a non-success HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sentry: HTTP %d", e.Code)
	}
	return fmt.Sprintf("sentry: HTTP %d: %s", e.Code, e.Body)
}

// Options configures a Client.
type Options struct {
	DSN            string
	Timeout        time.Duration
	Compress       bool
	MaxBreadcrumbs int
	HTTPClient     *http.Client
}

// Client submits events to the store endpoint of one project.
type Client struct {
	dsn      *DSN
	storeURL string
	auth     string
	httpc    *http.Client
	compress bool

	mu     sync.RWMutex
	scope  models.Scope
	crumbs *breadcrumbRing
	parser fastjson.ParserPool
	closed atomic.Bool
}

// New parses the DSN and prepares a client.
func New(opts Options) (*Client, error) {
	dsn, err := ParseDSN(opts.DSN)
	if err != nil {
		return nil, err
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpc = &http.Client{Timeout: timeout}
	}
	return &Client{
		dsn:      dsn,
		storeURL: dsn.StoreURL(),
		auth:     dsn.AuthHeader(ClientName),
		httpc:    httpc,
		compress: opts.Compress,
		crumbs:   newBreadcrumbRing(opts.MaxBreadcrumbs),
	}, nil
}

// DSN returns the parsed DSN.
func (c *Client) DSN() *DSN {
	return c.dsn
}

// Configure sets the scope merged into every event.
func (c *Client) Configure(scope models.Scope) {
	tags := make(map[string]string, len(scope.Tags))
	for k, v := range scope.Tags {
		tags[k] = v
	}
	scope.Tags = tags

	c.mu.Lock()
	c.scope = scope
	c.mu.Unlock()
}

// AddBreadcrumb appends to the trailing-context ring.
func (c *Client) AddBreadcrumb(b models.Breadcrumb) {
	c.crumbs.Add(b)
}

// CaptureEvent posts ev synchronously and classifies the response.
func (c *Client) CaptureEvent(ctx context.Context, ev *models.TelemetryEvent) models.SendResult {
	if c.closed.Load() {
		return models.SendResult{Status: models.SendFailed, Err: ErrClosed}
	}

	c.mu.RLock()
	scope := c.scope
	c.mu.RUnlock()

	body, err := json.Marshal(buildPayload(ev, scope, c.crumbs.Snapshot()))
	if err != nil {
		return models.SendResult{Status: models.SendFailed, Err: fmt.Errorf("sentry: marshal: %w", err)}
	}

	var encoding string
	if c.compress {
		if body, err = gzipBytes(body); err != nil {
			return models.SendResult{Status: models.SendFailed, Err: err}
		}
		encoding = "gzip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURL, bytes.NewReader(body))
	if err != nil {
		return models.SendResult{Status: models.SendFailed, Err: fmt.Errorf("sentry: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sentry-Auth", c.auth)
	req.Header.Set("User-Agent", ClientName)
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.SendResult{Status: models.SendFailed, Err: fmt.Errorf("sentry: %w", err)}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	switch {
	case resp.StatusCode == http.StatusOK:
		return models.SendResult{Status: models.SendOK, EventID: c.eventID(respBody, ev.EventID)}
	case resp.StatusCode == http.StatusUnauthorized:
		return models.SendResult{Status: models.SendUnauthorized, EventID: ev.EventID,
			Err: fmt.Errorf("%w: %s", ErrUnauthorized, bytes.TrimSpace(respBody))}
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.SendResult{Status: models.SendFailed, EventID: ev.EventID,
			Err: fmt.Errorf("%w (retry after %q)", ErrRateLimited, resp.Header.Get("Retry-After"))}
	default:
		return models.SendResult{Status: models.SendFailed, EventID: ev.EventID,
			Err: &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}}
	}
}

// eventID reads the id the server assigned, falling back to ours.
func (c *Client) eventID(body []byte, fallback string) string {
	if len(body) == 0 {
		return fallback
	}
	p := c.parser.Get()
	defer c.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return fallback
	}
	if id := v.GetStringBytes("id"); len(id) > 0 {
		return string(id)
	}
	return fallback
}

// Close rejects further submissions. Requests are synchronous, so nothing is left to flush.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	c.httpc.CloseIdleConnections()
	return nil
}

func gzipBytes(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("sentry: gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("sentry: gzip: %w", err)
	}
	return buf.Bytes(), nil
}
