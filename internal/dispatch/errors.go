package dispatch

import (
	"errors"
	"fmt"

	"github.com/restbench/restbench/internal/types"
)

// Kind classifies a failed dispatch. HTTP error statuses are never errors;
// these kinds cover only transport-level failures and aborts.
type Kind string

const (
	KindTransport Kind = "transport"
	KindTimeout   Kind = "timeout"
	KindCancelled Kind = "cancelled"
)

// Error is the failure raised by Send. Timeout and manual cancellation
// abort the same underlying call but carry distinct kinds so callers can
// tell them apart.
type Error struct {
	Kind      Kind
	URL       string
	ElapsedMs int64
	Err       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("request to %s timed out after %dms", e.URL, e.ElapsedMs)
	case KindCancelled:
		return fmt.Sprintf("request to %s cancelled", e.URL)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the dispatch kind of err, or "" when err is not a
// dispatch error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsTimeout reports whether err is a timeout-tagged dispatch failure.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// IsCancelled reports whether err is a cancellation-tagged dispatch failure.
func IsCancelled(err error) bool { return KindOf(err) == KindCancelled }

// ResultFromError converts a failed dispatch into a result-shaped value with
// the reserved status 0, so outer layers can render a failure state without
// special-casing errors.
func ResultFromError(err error) *types.DispatchResult {
	result := &types.DispatchResult{
		Status:     0,
		StatusText: "Network Error",
		Headers:    map[string]string{},
		Error:      err.Error(),
	}
	var de *Error
	if errors.As(err, &de) {
		result.ResponseTimeMs = de.ElapsedMs
		switch de.Kind {
		case KindTimeout:
			result.StatusText = "Timeout"
		case KindCancelled:
			result.StatusText = "Cancelled"
		}
	}
	return result
}
