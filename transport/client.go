// Package transport is the single HTTP client of the back office. It
// attaches the session bearer token, tags every call with a request id and
// turns failures into typed errors. A 401 tears the session down through
// Options.OnUnauthorized.
package transport

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

	"github.com/google/uuid"

	"github.com/thomasjacksonsantos/querysync"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10

	HeaderRequestID = "X-Request-ID"
)

// TokenSource yields the current access token; "" means anonymous.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

type Options struct {
	BaseURL    string       // required, e.g. https://api.example.com/api
	HTTPClient *http.Client // nil => &http.Client{Timeout: Timeout}
	Timeout    time.Duration
	Tokens     TokenSource // nil => anonymous
	// OnUnauthorized runs once per 401 response, before the error returns.
	OnUnauthorized func(ctx context.Context)
	Logger         querysync.Logger
	UserAgent      string
}

// Doer is what resource clients need from the transport.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type Client struct {
	base   *url.URL
	hc     *http.Client
	tokens TokenSource
	onAuth func(ctx context.Context)
	log    querysync.Logger
	ua     string
}

var _ Doer = (*Client)(nil)

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("transport: BaseURL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: bad BaseURL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("transport: BaseURL scheme must be http or https, got %q", base.Scheme)
	}
	c := &Client{
		base:   base,
		hc:     opts.HTTPClient,
		tokens: opts.Tokens,
		onAuth: opts.OnUnauthorized,
		log:    opts.Logger,
		ua:     opts.UserAgent,
	}
	if c.hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.hc = &http.Client{Timeout: timeout}
	}
	if c.log == nil {
		c.log = querysync.NopLogger{}
	}
	if c.ua == "" {
		c.ua = "querysync-backoffice"
	}
	return c, nil
}

// Response is a successful (2xx) response with its body read.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
}

// Decode unmarshals the body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}

// Do sends body as JSON (nil => no body) and decodes a 2xx JSON answer into
// out (nil => discarded).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	res, err := c.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	return res.Decode(out)
}

// Request performs one call. It never retries.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), rd)
	if err != nil {
		return nil, fmt.Errorf("transport: build %s %s: %w", method, path, err)
	}
	rid := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set(HeaderRequestID, rid)
	req.Header.Set("Content-Type", "application/json")
	c.authorize(ctx, req, rid)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn("request failed", querysync.Fields{"method": method, "path": path, "requestId": rid, "err": err})
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request done", querysync.Fields{
		"method": method, "path": path, "status": resp.StatusCode,
		"requestId": rid, "took": time.Since(start),
	})

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		if c.onAuth != nil {
			c.onAuth(context.WithoutCancel(ctx))
		}
		return nil, &AuthError{Method: method, Path: path}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: b, Message: envelopeMessage(b)}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: b, RequestID: rid}, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request, rid string) {
	if c.tokens == nil {
		return
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Warn("token unavailable, sending request unauthenticated", querysync.Fields{"requestId": rid, "err": err})
		return
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// resolve joins path (which may carry a query string) onto the base URL.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base.String() + "/" + strings.TrimLeft(path, "/")
}

func envelopeMessage(b []byte) string {
	var env struct {
		Message string `json:"message"`
		Errors  []any  `json:"errors"`
		Title   string `json:"title"`
	}
	if json.Unmarshal(b, &env) != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	var msgs []string
	for _, e := range env.Errors {
		if s, ok := e.(string); ok && s != "" {
			msgs = append(msgs, s)
		}
	}
	if len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return env.Title
}
