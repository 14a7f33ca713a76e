package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthRequired is returned when the backend answers 401.
	ErrAuthRequired = errors.New("authentication required")
	// ErrCanceled is returned when the caller's context was cancelled.
	// It is never a failure and must not be logged as one.
	ErrCanceled = errors.New("request canceled")
	// ErrTimeout is returned when the request deadline elapsed.
	ErrTimeout = errors.New("request timed out")
	// ErrNetwork is returned for transport failures (DNS, refused connection, reset).
	ErrNetwork = errors.New("network error")
	// ErrBackendUnavailable is returned when the API reports its data tier
	// as unreachable (502/503).
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// HTTPError is a non-2xx response that has no more specific meaning.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	text := e.StatusText
	if text == "" {
		text = http.StatusText(e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, text)
}

// DomainError is an {"error": "..."} payload delivered with a 2xx status.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Kind classifies an error into the console's error taxonomy.
type Kind int

const (
	KindNone Kind = iota
	KindAuthRequired
	KindCanceled
	KindBackendUnavailable
	KindTimeout
	KindNetwork
	KindHTTP
	KindDomain
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuthRequired:
		return "auth_required"
	case KindCanceled:
		return "canceled"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// KindOf returns the taxonomy kind of err. Order matters: authentication
// outranks everything, and cancellation outranks timeouts.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var httpErr *HTTPError
	var domainErr *DomainError
	switch {
	case errors.Is(err, ErrAuthRequired):
		return KindAuthRequired
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrBackendUnavailable):
		return KindBackendUnavailable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &domainErr):
		return KindDomain
	default:
		return KindUnknown
	}
}

// IsSilent reports whether err should be swallowed without logging or
// rendering. Only cancellation qualifies.
func IsSilent(err error) bool {
	return KindOf(err) == KindCanceled
}

// transportError maps an error from http.Client.Do onto the taxonomy,
// consulting ctx to tell cancellation apart from deadline expiry.
func transportError(ctx context.Context, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	case context.DeadlineExceeded:
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
