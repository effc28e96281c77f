package backend

import (
	"context"
	"errors"
	"net"
)

// Status is the outcome of a single resolution step.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not-found"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed-out"
	}
	return "unknown"
}

// Result carries a resolved value or the reason there is none. Err is set for
// every status except StatusFound and is meant for logs, not clients.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

func (r Result[T]) Found() bool {
	return r.Status == StatusFound
}

func found[T any](v T) Result[T] {
	return Result[T]{Status: StatusFound, Value: v}
}

func notFound[T any](err error) Result[T] {
	return Result[T]{Status: StatusNotFound, Err: err}
}

// failed classifies err as a timeout or a generic failure.
func failed[T any](err error) Result[T] {
	if IsTimeout(err) {
		return Result[T]{Status: StatusTimedOut, Err: err}
	}
	return Result[T]{Status: StatusFailed, Err: err}
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
