// Package api is the REST client for the /api/v1/langgraph endpoints.
//
// Every response is unwrapped from the backend envelope
// {status_code, status_message, data}. Failures come back as the typed
// errors of the lgstudio errors package. Idempotent calls are retried on
// transient failures; calls that start work on the backend are not.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	lgerrors "github.com/randalmurphal/lgstudio/pkg/lgstudio/errors"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/observability"
)

// BasePath is the route prefix of every endpoint.
const BasePath = "/api/v1/langgraph"

// DefaultTimeout bounds non-streaming requests.
const DefaultTimeout = 60 * time.Second

// Client talks to one backend.
type Client struct {
	baseURL     string
	http        *http.Client
	tokens      oauth2.TokenSource
	timeout     time.Duration
	retry       lgerrors.RetryConfig
	logger      *slog.Logger
	userAgent   string
	customHTTP  bool
	noTelemetry bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses hc as-is. Token and telemetry options are ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.customHTTP = true
	}
}

// WithTokenSource authenticates requests with bearer tokens from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithToken authenticates requests with a fixed bearer token.
// An empty token disables authentication.
func WithToken(token string) Option {
	return func(c *Client) {
		if token == "" {
			c.tokens = nil
			return
		}
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}
}

// WithTimeout sets the timeout for non-streaming requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets the retry policy for idempotent calls.
func WithRetry(cfg lgerrors.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithoutTelemetry skips the otelhttp transport.
func WithoutTelemetry() Option {
	return func(c *Client) { c.noTelemetry = true }
}

// New creates a client for the backend at baseURL (scheme and host, with an
// optional path prefix; BasePath is appended).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   DefaultTimeout,
		retry:     lgerrors.DefaultRetry,
		userAgent: "lgstudio",
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.customHTTP {
		c.http = &http.Client{Transport: c.transport()}
	}
	return c
}

func (c *Client) transport() http.RoundTripper {
	var rt http.RoundTripper = http.DefaultTransport
	if !c.noTelemetry {
		rt = otelhttp.NewTransport(rt)
	}
	if c.tokens != nil {
		rt = &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, c.tokens), Base: rt}
	}
	return rt
}

// envelope is the response wrapper used by every endpoint.
// StatusCode is nil when the body is not an envelope.
type envelope struct {
	StatusCode    *int            `json:"status_code"`
	StatusMessage string          `json:"status_message"`
	Data          json.RawMessage `json:"data"`
}

// call describes one request.
type call struct {
	method     string
	path       string
	query      url.Values
	body       any
	idempotent bool
}

// do runs a call, retrying idempotent ones, and decodes data into out.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	cfg := c.retry
	if !cl.idempotent {
		cfg = lgerrors.NoRetry
	}
	if cfg.OnRetry == nil && c.logger != nil {
		op := cl.method + " " + cl.path
		cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
			observability.LogRetry(c.logger, op, attempt, delay, err)
		}
	}

	res := lgerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.once(ctx, cl, out)
	})
	return res.Err
}

func (c *Client) once(ctx context.Context, cl call, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.send(ctx, cl, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", cl.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.httpError(cl, resp.StatusCode, body)
	}
	return c.unwrap(cl, body, out)
}

// send builds and sends the request without reading the response.
func (c *Client) send(ctx context.Context, cl call, accept string) (*http.Response, error) {
	u := c.baseURL + BasePath + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", cl.path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	return resp, nil
}

// unwrap strips the envelope. Bodies that are not a JSON object carrying a
// status_code are taken to be bare data.
func (c *Client) unwrap(cl call, body []byte, out any) error {
	data := body
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return &lgerrors.DecodeError{Endpoint: cl.path, Err: err}
		}
		if env.StatusCode != nil {
			if *env.StatusCode != http.StatusOK {
				return &lgerrors.HTTPError{
					StatusCode: *env.StatusCode,
					Message:    env.StatusMessage,
					Method:     cl.method,
					Endpoint:   cl.path,
				}
			}
			data = env.Data
		}
	}

	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &lgerrors.DecodeError{Endpoint: cl.path, Err: err}
	}
	return nil
}

// httpError builds an HTTPError from a non-2xx response, using the most
// specific message the body offers.
func (c *Client) httpError(cl call, status int, body []byte) error {
	msg := http.StatusText(status)
	var detail struct {
		Detail        any    `json:"detail"`
		StatusMessage string `json:"status_message"`
	}
	if json.Unmarshal(body, &detail) == nil {
		switch d := detail.Detail.(type) {
		case string:
			msg = d
		case nil:
			if detail.StatusMessage != "" {
				msg = detail.StatusMessage
			}
		default:
			if b, err := json.Marshal(d); err == nil {
				msg = string(b)
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		msg = text
	}
	return &lgerrors.HTTPError{StatusCode: status, Message: msg, Method: cl.method, Endpoint: cl.path}
}
