// Package provider wraps the external video-search and autocomplete
// services. Calls never return errors: every outcome is a Result whose
// Status says why it may be empty.
package provider

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Status classifies the outcome of one provider call.
type Status string

const (
	StatusOK       Status = "ok"
	StatusEmpty    Status = "empty"
	StatusDisabled Status = "disabled"
	StatusTimeout  Status = "timeout"
	StatusFailed   Status = "failed"
	StatusRejected Status = "rejected"
)

// Result is the outcome of a provider call. Items is empty unless Status is ok.
type Result[T any] struct {
	Provider string
	Status   Status
	Reason   string
	Items    []T
	Elapsed  time.Duration
}

// OK reports whether the call produced items.
func (r Result[T]) OK() bool {
	return r.Status == StatusOK
}

func succeeded[T any](provider string, items []T, elapsed time.Duration) Result[T] {
	if len(items) == 0 {
		return Result[T]{Provider: provider, Status: StatusEmpty, Items: []T{}, Elapsed: elapsed}
	}
	return Result[T]{Provider: provider, Status: StatusOK, Items: items, Elapsed: elapsed}
}

func degraded[T any](provider string, status Status, reason string, elapsed time.Duration) Result[T] {
	return Result[T]{Provider: provider, Status: status, Reason: reason, Items: []T{}, Elapsed: elapsed}
}

var errRateLimited = errors.New("rate limit exceeded")

// classify maps a call error to a Status.
func classify(err error) Status {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return StatusTimeout
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests),
		errors.Is(err, errRateLimited):
		return StatusRejected
	default:
		return StatusFailed
	}
}
