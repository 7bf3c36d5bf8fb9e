// Package stream runs one live log session: it opens the hub's event stream,
// enforces the connect timeout, and hands each log record to a sink until
// the operator cancels or the stream fails.
//
// Run owns a single event loop. The transport is read by a pump goroutine
// that only forwards events, and the connect timer only signals the loop, so
// the armed flag and the session state are never touched concurrently.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"edgelog/internal/clock"
	"edgelog/internal/hub"
	"edgelog/internal/logging"
)

// DefaultConnectTimeout is how long to wait for the stream to open.
const DefaultConnectTimeout = 30 * time.Second

// Operator-facing messages.
const (
	NoDriversAdvisory = "No drivers currently installed."
	StatusConnecting  = "connecting"
	StatusListening   = "listening for logs"
	StatusFailed      = "failed"
)

// Sink receives parsed log records.
type Sink interface {
	Emit(rec hub.LogRecord) error
}

// Notifier shows progress and advisories to the operator.
type Notifier interface {
	Warn(msg string)
	Status(msg string)
}

// Opener opens the event stream. The body must unblock reads when ctx is
// cancelled or it is closed.
type Opener interface {
	OpenStream(ctx context.Context, url string) (io.ReadCloser, error)
}

// State is a session's lifecycle position.
type State int32

const (
	Idle State = iota
	Connecting
	TimedOut
	Open
	Listening
	Closed
	Faulted
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case TimedOut:
		return "timed-out"
	case Open:
		return "open"
	case Listening:
		return "listening"
	case Closed:
		return "closed"
	case Faulted:
		return "faulted"
	default:
		return "idle"
	}
}

// Config configures a Session.
type Config struct {
	// Authority names the hub in fault messages.
	Authority string
	Opener    Opener
	Sink      Sink
	Notifier  Notifier
	// Clock defaults to the real clock.
	Clock clock.Clock
	// ConnectTimeout is used as given; zero fires as soon as the session
	// starts unless the stream is already open.
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// Session is a single use event stream consumer.
type Session struct {
	authority      string
	opener         Opener
	sink           Sink
	notifier       Notifier
	clock          clock.Clock
	connectTimeout time.Duration
	logger         *slog.Logger

	state     atomic.Int32
	malformed atomic.Int64
	warnEvery rate.Sometimes
}

// New creates a Session.
func New(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.ConnectTimeout < 0 {
		cfg.ConnectTimeout = 0
	}
	return &Session{
		authority:      cfg.Authority,
		opener:         cfg.Opener,
		sink:           cfg.Sink,
		notifier:       cfg.Notifier,
		clock:          cfg.Clock,
		connectTimeout: cfg.ConnectTimeout,
		logger:         logging.Default(cfg.Logger).With("component", "stream", "authority", cfg.Authority),
		warnEvery:      rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Malformed returns how many payloads failed to parse.
func (s *Session) Malformed() int64 {
	return s.malformed.Load()
}

func (s *Session) setState(st State) {
	s.logger.Debug("session state", "state", st)
	s.state.Store(int32(st))
}

type eventKind int

const (
	eventOpen eventKind = iota
	eventMessage
	eventError
)

type event struct {
	kind eventKind
	data []byte
	err  error
}

// Run streams url until ctx is cancelled, which returns nil, or the stream
// fails, which returns a *hub.Fault or a sink error. warnNoDrivers shows
// NoDriversAdvisory once the stream opens. The transport and timer are torn
// down before Run returns.
func (s *Session) Run(ctx context.Context, url string, warnNoDrivers bool) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Connecting)) {
		return fmt.Errorf("session already started (state %s)", s.State())
	}
	s.logger.Debug("session state", "state", Connecting, "url", url)
	s.notifier.Status(StatusConnecting)

	pumpCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(pumpCtx)
	events := make(chan event)
	defer func() {
		cancel()
		_ = g.Wait()
	}()

	fired := make(chan struct{}, 1)
	timer := s.clock.AfterFunc(s.connectTimeout, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	armed := true
	disarm := func() {
		if armed {
			armed = false
			timer.Stop()
		}
	}
	defer disarm()

	g.Go(func() error {
		s.pump(gctx, url, events)
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			s.setState(Closed)
			return nil

		case <-fired:
			if !armed {
				continue
			}
			armed = false
			s.setState(TimedOut)
			s.notifier.Status(StatusFailed)
			return s.fault(hub.ErrConnectTimeout)

		case ev := <-events:
			switch ev.kind {
			case eventOpen:
				disarm()
				s.setState(Open)
				if warnNoDrivers {
					s.notifier.Warn(NoDriversAdvisory)
				}
				s.notifier.Status(StatusListening)
				s.setState(Listening)

			case eventMessage:
				rec, err := hub.ParseLogRecord(ev.data)
				if err != nil {
					s.reportMalformed(err, ev.data)
					continue
				}
				if err := s.sink.Emit(rec); err != nil {
					s.setState(Faulted)
					return fmt.Errorf("emit log record: %w", err)
				}

			case eventError:
				disarm()
				s.setState(Faulted)
				s.notifier.Status(StatusFailed)
				s.logger.Debug("error from event source", "url", url, "error", ev.err)
				return s.fault(ev.err)
			}
		}
	}
}

// pump opens the stream and forwards its events until ctx is done or the
// stream ends.
func (s *Session) pump(ctx context.Context, url string, events chan<- event) {
	send := func(ev event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	body, err := s.opener.OpenStream(ctx, url)
	if err != nil {
		if ctx.Err() == nil {
			send(event{kind: eventError, err: err})
		}
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer func() {
		stop()
		_ = body.Close()
	}()

	if !send(event{kind: eventOpen}) {
		return
	}

	r := hub.NewEventReader(body)
	for {
		ev, err := r.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = hub.ErrStreamClosed
			}
			s.logger.Debug("event stream ended", "last_event_id", r.LastEventID(), "error", err)
			send(event{kind: eventError, err: err})
			return
		}
		if ev.Type != "message" {
			s.logger.Debug("ignoring event", "type", ev.Type)
			continue
		}
		if !send(event{kind: eventMessage, data: ev.Data}) {
			return
		}
	}
}

// fault maps a transport error to an operator-facing fault. Rejected
// credentials are never treated as a network fault.
func (s *Session) fault(err error) error {
	var se *hub.StatusError
	if errors.As(err, &se) && se.Unauthorized() {
		return hub.NewFault(hub.FaultUnauthorized, s.authority, se)
	}
	if f := hub.Classify(s.authority, err); f != nil {
		if f.Authority == "" {
			named := *f
			named.Authority = s.authority
			return &named
		}
		return f
	}
	return hub.NewFault(hub.FaultUnexpected, s.authority, err)
}

func (s *Session) reportMalformed(err error, payload []byte) {
	n := s.malformed.Add(1)
	s.logger.Debug("malformed event", "count", n, "payload", string(payload), "error", err)
	s.warnEvery.Do(func() {
		s.notifier.Warn(err.Error())
	})
}
