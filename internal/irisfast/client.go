package irisfast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// HeaderProvider supplies extra headers for every request, such as the
// X-User-Id triple some Iris deployments require.
type HeaderProvider func() map[string]string

// APIError is a non-2xx answer from Iris.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("iris api error: status=%d body=%s", e.Status, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	switch e.Status {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client talks to the Iris HTTP API.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	timeout  time.Duration
	attempts int
	logger   *zap.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry bounds attempts for idempotent calls. Replies are sent once.
func WithRetry(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		timeout:  10 * time.Second,
		attempts: 3,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetConfig reads the bot settings Iris exposes at /config.
func (c *Client) GetConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := c.call(ctx, fasthttp.MethodGet, "/config", nil, &cfg, c.attempts); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SendMessage posts a text reply. Replies are not retried so a slow Iris never duplicates a message.
func (c *Client) SendMessage(ctx context.Context, room, message string) error {
	return c.reply(ctx, "text", room, message)
}

// SendImage posts a base64 PNG reply.
func (c *Client) SendImage(ctx context.Context, room, imageBase64 string) error {
	return c.reply(ctx, "image", room, imageBase64)
}

func (c *Client) reply(ctx context.Context, kind, room, data string) error {
	return c.call(ctx, fasthttp.MethodPost, "/reply", &ReplyRequest{Type: kind, Room: room, Data: data}, nil, 1)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any, attempts int) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = c.once(ctx, req, resp)
		if err == nil {
			break
		}
		if attempt >= attempts || !retryable(err) {
			return err
		}
		c.logger.Debug("iris_request_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
		if werr := wait(ctx, backoffDuration(attempt)); werr != nil {
			return err
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) once(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return &APIError{Status: status, Body: truncate(string(resp.Body()), 512)}
	}
	return nil
}

// retryable treats transport failures and temporary statuses as worth another try.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

// deadline is the earlier of ctx's deadline and the client timeout.
func (c *Client) deadline(ctx context.Context) time.Time {
	dl := time.Now().Add(c.timeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(dl) {
		return ctxDL
	}
	return dl
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDuration doubles from 100ms and stops growing after the sixth attempt.
func backoffDuration(attempt int) time.Duration {
	attempt = max(1, min(attempt, 6))
	return 100 * time.Millisecond << (attempt - 1)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) && len(s) > 0 {
		s = s[:len(s)-1]
	}
	return s
}
