package hub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// FaultKind is the operator-facing category of a hub failure.
type FaultKind int

const (
	FaultUnexpected FaultKind = iota
	FaultUnreachable
	FaultTimeout
	FaultHostDown
	FaultUnauthorized
	FaultVerificationRejected
	FaultMalformedEvent
)

func (k FaultKind) String() string {
	switch k {
	case FaultUnreachable:
		return "unreachable"
	case FaultTimeout:
		return "timeout"
	case FaultHostDown:
		return "host-down"
	case FaultUnauthorized:
		return "unauthorized"
	case FaultVerificationRejected:
		return "verification-rejected"
	case FaultMalformedEvent:
		return "malformed-event"
	default:
		return "unexpected"
	}
}

// Sentinels for errors.Is checks against a *Fault of the same kind.
var (
	ErrUnreachable          = &Fault{Kind: FaultUnreachable}
	ErrTimeout              = &Fault{Kind: FaultTimeout}
	ErrHostDown             = &Fault{Kind: FaultHostDown}
	ErrUnauthorized         = &Fault{Kind: FaultUnauthorized}
	ErrVerificationRejected = &Fault{Kind: FaultVerificationRejected}
	ErrMalformedEvent       = &Fault{Kind: FaultMalformedEvent}
	ErrUnexpected           = &Fault{Kind: FaultUnexpected}
)

// ErrStreamClosed is the cause attached when the hub ends the event stream.
var ErrStreamClosed = errors.New("event stream closed by hub")

const addressAdvice = "Ensure hub address is correct and try again"

// Fault is a classified, operator-facing hub failure. Err carries the raw
// cause for diagnosis.
type Fault struct {
	Kind      FaultKind
	Authority string
	Err       error
}

// NewFault builds a fault of kind for authority wrapping cause.
func NewFault(kind FaultKind, authority string, cause error) *Fault {
	return &Fault{Kind: kind, Authority: authority, Err: cause}
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultUnreachable:
		return fmt.Sprintf("unable to connect to %s. %s", f.Authority, addressAdvice)
	case FaultTimeout:
		return fmt.Sprintf("connection to %s timed out. %s", f.Authority, addressAdvice)
	case FaultHostDown:
		return fmt.Sprintf("the host at %s is down. %s", f.Authority, addressAdvice)
	case FaultUnauthorized:
		return fmt.Sprintf("unauthorized at %s", f.Authority)
	case FaultVerificationRejected:
		return "hub verification failed"
	case FaultMalformedEvent:
		if f.Err != nil {
			return fmt.Sprintf("unexpected log message type: %v", f.Err)
		}
		return "unexpected log message type"
	default:
		if f.Err != nil {
			return fmt.Sprintf("unexpected error from %s: %v", f.Authority, f.Err)
		}
		return fmt.Sprintf("unexpected error from %s", f.Authority)
	}
}

func (f *Fault) Unwrap() error { return f.Err }

// Is matches any *Fault with the same Kind, so errors.Is(err, ErrTimeout)
// works regardless of authority or cause.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	return ok && t.Kind == f.Kind
}

// StatusError is a non-2xx response from the hub.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("hub responded %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("hub responded %s", e.Status)
}

// Unauthorized reports whether the status means the hub rejected credentials.
func (e *StatusError) Unauthorized() bool {
	return e.Code == 401 || e.Code == 403
}

// ClassifyCode maps a raw connection error code (e.g. "ECONNREFUSED") to a
// fault. Codes are matched case-sensitively as substrings, so full error
// messages such as "connect ECONNREFUSED 192.168.0.1:9495" also classify.
// It returns nil when the code is not recognised.
func ClassifyCode(authority, code string) *Fault {
	var kind FaultKind
	switch {
	case strings.Contains(code, "ECONNREFUSED"), strings.Contains(code, "EHOSTUNREACH"):
		kind = FaultUnreachable
	case strings.Contains(code, "ETIMEDOUT"):
		kind = FaultTimeout
	case strings.Contains(code, "EHOSTDOWN"):
		kind = FaultHostDown
	default:
		return nil
	}
	return NewFault(kind, authority, errors.New(code))
}

// Classify maps a transport error to a fault, or nil when the error is not a
// recognised connection failure. An existing *Fault is returned unchanged.
func Classify(authority string, err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	if code := errnoCode(err); code != "" {
		if f := ClassifyCode(authority, code); f != nil {
			f.Err = err
			return f
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewFault(FaultTimeout, authority, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewFault(FaultTimeout, authority, err)
	}
	return nil
}

// errnoCode returns the symbolic name of the syscall errno wrapped in err.
func errnoCode(err error) string {
	for _, c := range []struct {
		errno syscall.Errno
		code  string
	}{
		{syscall.ECONNREFUSED, "ECONNREFUSED"},
		{syscall.EHOSTUNREACH, "EHOSTUNREACH"},
		{syscall.ETIMEDOUT, "ETIMEDOUT"},
		{syscall.EHOSTDOWN, "EHOSTDOWN"},
	} {
		if errors.Is(err, c.errno) {
			return c.code
		}
	}
	return ""
}

// ErrConnectTimeout is the error synthesized when no open signal arrives
// before the connect timer fires.
var ErrConnectTimeout error = &net.OpError{Op: "connect", Net: "tcp", Err: syscall.ETIMEDOUT}
