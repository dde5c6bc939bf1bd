package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// Defaults for backend HTTP clients.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultRetryMax     = 2
	DefaultRetryWaitMin = 50 * time.Millisecond
	DefaultRetryWaitMax = 500 * time.Millisecond

	// maxErrorBody bounds how much of a failed response body is kept.
	maxErrorBody = 512
)

// ErrUnexpectedStatus is matched by every *StatusError.
var ErrUnexpectedStatus = errors.New("unexpected backend status")

// StatusError is returned when a backend answers with a non-2xx status.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Backend, e.StatusCode, e.Body)
}

// Is reports whether target is ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// NewStatusError reads a bounded part of resp.Body into a StatusError.
func NewStatusError(backend string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort detail
	return &StatusError{Backend: backend, StatusCode: resp.StatusCode, Body: string(body)}
}

// Observer receives per-call measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	// ObserveRequest records one backend call and its outcome label.
	ObserveRequest(backend, outcome string, elapsed time.Duration)

	// ObserveCache records a result cache lookup.
	ObserveCache(backend string, hit bool)
}

// NopObserver discards all measurements.
type NopObserver struct{}

// ObserveRequest implements Observer.
func (NopObserver) ObserveRequest(string, string, time.Duration) {}

// ObserveCache implements Observer.
func (NopObserver) ObserveCache(string, bool) {}

// Outcome returns the label recorded for a call that ended with err.
func Outcome(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &se):
		return "status_" + fmt.Sprint(se.StatusCode)
	default:
		return "error"
	}
}

// HTTPOptions configures NewHTTPClient.
type HTTPOptions struct {
	Timeout  time.Duration
	RetryMax int
	Logger   *slog.Logger
}

// NewHTTPClient returns a retrying client on a pooled transport.
// Retries stop as soon as the request context is done.
func NewHTTPClient(opts HTTPOptions) *retryablehttp.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &retryablehttp.Client{
		HTTPClient: &http.Client{
			Transport: cleanhttp.DefaultPooledTransport(),
			Timeout:   opts.Timeout,
		},
		Logger:       opts.Logger,
		RetryWaitMin: DefaultRetryWaitMin,
		RetryWaitMax: DefaultRetryWaitMax,
		RetryMax:     opts.RetryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
}
