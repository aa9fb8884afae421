package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind classifies a failed fetch. The set is stable: callers branch on it.
type Kind int

const (
	Other Kind = iota
	Connection
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Connection:
		return "connection"
	case Timeout:
		return "timeout"
	default:
		return "other"
	}
}

type FetchError struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s: HTTP %d", e.URL, e.Kind, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf reports the kind of err, or Other when err is not a *FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Other
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Timeout
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return Connection
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Connection
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Connection
	}

	return Other
}
