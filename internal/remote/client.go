// Package remote is the resilient client for the watchlist/events backend.
// Every operation returns a Result envelope; failures never escape as Go
// errors or panics.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oremus-labs/watchdesk/internal/forms"
)

const (
	// DefaultBaseURL is the backend origin used when none is configured.
	DefaultBaseURL = "http://localhost:3001"
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps the size of a response body.
	DefaultMaxBodyBytes = 4 << 20
)

// Recorder receives per-attempt and per-call measurements.
type Recorder interface {
	ObserveAttempt(operation, outcome string)
	ObserveRetry(operation string)
	ObserveCall(operation, outcome string, duration time.Duration)
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	Retry      Policy
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    Recorder
	Sleep      SleepFunc
	Forms      *forms.Validator
	// MaxBodyBytes caps response bodies; larger successful bodies are
	// reported as malformed.
	MaxBodyBytes int64
}

// Client issues requests to the remote service. It is safe for concurrent
// use; each call owns its own retry state.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	retry   Policy
	http    *http.Client
	logger  *slog.Logger
	metrics Recorder
	sleep   SleepFunc
	forms   *forms.Validator
	maxBody int64
	// baseErr is set when BaseURL is unusable; every call fails fast with it.
	baseErr *Error
}

// New constructs a Client. Zero-valued options fall back to defaults.
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.Attempts == 0 && opts.Retry.InitialDelay == 0 && opts.Retry.ShouldRetry == nil {
		opts.Retry = DefaultPolicy
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Forms == nil {
		opts.Forms = forms.MustNew()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Client{
		baseURL: base,
		token:   opts.Token,
		timeout: opts.Timeout,
		retry:   opts.Retry.normalized(),
		http:    opts.HTTPClient,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		sleep:   opts.Sleep,
		forms:   opts.Forms,
		maxBody: opts.MaxBodyBytes,
		baseErr: checkBaseURL(base),
	}
}

// checkBaseURL rejects origins that no request could be built against.
func checkBaseURL(base string) *Error {
	u, err := url.Parse(base)
	if err == nil && ((u.Scheme != "http" && u.Scheme != "https") || u.Host == "") {
		err = fmt.Errorf("se esperaba http(s)://host, se recibió %q", base)
	}
	if err != nil {
		return &Error{Kind: KindUnknown, Message: fmt.Sprintf("URL base inválida: %v", err), Err: err, permanent: true}
	}
	return nil
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	operation string
	method    string
	path      string
	body      interface{}
}

// call runs one logical request with retries and decodes the payload into T.
func call[T any](ctx context.Context, c *Client, r request) Result[T] {
	start := time.Now()
	requestID := uuid.NewString()
	if c.baseErr != nil {
		return finish(c, r, requestID, start, 0, Fail[T](c.baseErr))
	}

	var payload []byte
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return finish(c, r, requestID, start, 0, Fail[T](&Error{
				Kind:    KindUnknown,
				Message: fmt.Sprintf("no se pudo codificar la solicitud: %v", err),
				Err:     err,
			}))
		}
		payload = data
	}

	var out T
	// Empty payloads ignore whatever a successful response carries.
	_, discard := any(out).(Empty)
	attempts, failure := c.retry.run(ctx, c.sleep, retryHooks{
		onAttempt: func(attempt int, err *Error) {
			if c.metrics != nil {
				c.metrics.ObserveAttempt(r.operation, outcome(err))
			}
		},
		onRetry: func(attempt int, delay time.Duration, err *Error) {
			if c.metrics != nil {
				c.metrics.ObserveRetry(r.operation)
			}
			c.logger.Warn("remote call failed, retrying",
				"operation", r.operation,
				"attempt", attempt,
				"delay", delay,
				"kind", err.Kind,
				"status", err.Status,
				"error", err.Message,
				"request_id", requestID,
			)
		},
	}, func(attempt int) *Error {
		var zero T
		out = zero
		raw, status, err := c.send(ctx, r, payload, requestID)
		if err != nil {
			return err
		}
		if raw == nil || discard {
			return nil
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return malformed(status, err)
		}
		return nil
	})

	if failure != nil {
		return finish(c, r, requestID, start, attempts, Fail[T](failure))
	}
	return finish(c, r, requestID, start, attempts, OK(out))
}

func finish[T any](c *Client, r request, requestID string, start time.Time, attempts int, res Result[T]) Result[T] {
	elapsed := time.Since(start)
	if c.metrics != nil {
		label := "success"
		if !res.Success {
			label = string(res.Kind)
		}
		c.metrics.ObserveCall(r.operation, label, elapsed)
	}
	if res.Success {
		c.logger.Debug("remote call succeeded",
			"operation", r.operation,
			"attempts", attempts,
			"duration", elapsed,
			"request_id", requestID,
		)
		return res
	}
	level := slog.LevelError
	if res.Kind == KindValidation || (res.Kind == KindHTTP && res.Status < 500) {
		level = slog.LevelWarn
	}
	c.logger.Log(context.Background(), level, "remote call failed",
		"operation", r.operation,
		"method", r.method,
		"path", r.path,
		"attempts", attempts,
		"kind", res.Kind,
		"status", res.Status,
		"error", res.Error,
		"duration", elapsed,
		"request_id", requestID,
	)
	return res
}

// send performs a single attempt. A nil payload with a nil error means the
// response carried no JSON body.
func (c *Client) send(ctx context.Context, r request, payload []byte, requestID string) (json.RawMessage, int, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, 0, &Error{Kind: KindUnknown, Message: err.Error(), Err: err, permanent: true}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, truncated, err := readAtMost(resp.Body, c.maxBody)
	if err != nil {
		return nil, 0, transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, httpError(resp, raw)
	}
	if truncated {
		return nil, resp.StatusCode, malformed(resp.StatusCode,
			fmt.Errorf("el cuerpo supera el límite de %d bytes", c.maxBody))
	}

	if len(bytes.TrimSpace(raw)) == 0 || !isJSON(resp.Header.Get("Content-Type")) {
		return nil, resp.StatusCode, nil
	}
	data, err := unwrap(raw)
	if err != nil {
		return nil, resp.StatusCode, malformed(resp.StatusCode, err)
	}
	return data, resp.StatusCode, nil
}

func transportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return canceled(ctx.Err())
	}
	return &Error{Kind: KindConnectivity, Message: ConnectivityMessage, Err: err}
}

func httpError(resp *http.Response, raw []byte) *Error {
	e := &Error{Kind: KindHTTP, Status: resp.StatusCode}
	if json.Valid(raw) {
		e.Body = json.RawMessage(raw)
	}
	e.Message = errorMessage(raw)
	if e.Message == "" {
		e.Message = statusText(resp)
	}
	return e
}

// errorMessage extracts a human-readable message from a JSON error body.
func errorMessage(raw []byte) string {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		switch v := body[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	return ""
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
	}
	return text
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// unwrap returns the body's "data" member when present and non-null,
// otherwise the whole body.
func unwrap(raw []byte) (json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, errors.New("el cuerpo no es JSON válido")
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		if data, ok := obj["data"]; ok && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			return data, nil
		}
	}
	return json.RawMessage(trimmed), nil
}

// readAtMost reads up to max bytes and reports whether the body was longer.
func readAtMost(r io.Reader, max int64) ([]byte, bool, error) {
	raw, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(raw)) > max {
		return raw[:max], true, nil
	}
	return raw, false, nil
}

func outcome(err *Error) string {
	if err == nil {
		return "success"
	}
	return string(err.Kind)
}
