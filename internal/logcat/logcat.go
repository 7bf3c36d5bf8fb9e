// Package logcat runs one live log invocation: connect to the hub, verify
// it, pick the drivers to follow, then stream until interrupted.
package logcat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"edgelog/internal/clock"
	"edgelog/internal/hub"
	"edgelog/internal/logging"
	"edgelog/internal/selector"
	"edgelog/internal/stream"
	"edgelog/internal/tofu"
	"edgelog/internal/trust"
)

// Options configures an invocation.
type Options struct {
	Authority     hub.Authority
	Authenticator hub.Authenticator
	Store         *trust.Store

	// Confirmer answers the host verification question.
	Confirmer tofu.Confirmer
	// Prompter asks for a driver when none was given.
	Prompter selector.Prompter
	// Notifier receives warnings and progress; it also shows TOFU warnings.
	Notifier stream.Notifier
	// Out receives the driver table shown before prompting.
	Out  io.Writer
	Sink stream.Sink

	// Input is the driver id or index from the command line, if any.
	Input string
	// All streams every driver without consulting Input.
	All bool

	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Clock          clock.Clock
	Logger         *slog.Logger
	DialContext    func(ctx context.Context, network, addr string) (net.Conn, error)
}

// ErrNoAuthority is returned when Options.Authority was never set.
var ErrNoAuthority = errors.New("no hub address given")

// NewClient returns a hub client whose first response is checked against
// the known hubs in opts.Store.
func NewClient(opts Options) *hub.Client {
	verifier := tofu.New(tofu.Config{
		Store:     opts.Store,
		Confirmer: opts.Confirmer,
		Warner:    opts.Notifier,
		Logger:    opts.Logger,
	})
	return hub.New(opts.Authority, hub.Options{
		Authenticator:  opts.Authenticator,
		Verifier:       verifier,
		RequestTimeout: opts.RequestTimeout,
		Logger:         opts.Logger,
		DialContext:    opts.DialContext,
	})
}

// Run streams logs until ctx is cancelled, returning nil, or a fault ends
// the session. The driver listing starts immediately and always completes
// before the stream is opened.
func Run(ctx context.Context, opts Options) error {
	if opts.Authority.IsZero() {
		return ErrNoAuthority
	}
	logger := logging.Default(opts.Logger).With("component", "logcat")
	client := NewClient(opts)

	var (
		g       errgroup.Group
		drivers []hub.DriverSummary
	)
	g.Go(func() error {
		list, err := client.ListDrivers(ctx)
		if err != nil {
			return err
		}
		drivers = list
		return nil
	})
	listed := func() ([]hub.DriverSummary, error) {
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return drivers, nil
	}

	target := selector.All()
	if !opts.All {
		sel := selector.New(selector.Config{Prompter: opts.Prompter, Out: opts.Out})
		t, err := sel.Resolve(ctx, opts.Input, listed)
		if err != nil {
			_ = g.Wait()
			return cancelled(ctx, err)
		}
		target = t
	}

	installed, err := listed()
	if err != nil {
		return cancelled(ctx, err)
	}
	logger.Debug("streaming", "target", target, "installed", len(installed))

	session := stream.New(stream.Config{
		Authority:      client.Authority().String(),
		Opener:         client,
		Sink:           opts.Sink,
		Notifier:       opts.Notifier,
		Clock:          opts.Clock,
		ConnectTimeout: opts.ConnectTimeout,
		Logger:         opts.Logger,
	})
	// Faults are returned unwrapped; their text is the operator message.
	return session.Run(ctx, client.LogSourceURL(target.DriverID()), len(installed) == 0 && target.All())
}

// ListDrivers verifies the hub and returns its drivers sorted by name.
func ListDrivers(ctx context.Context, opts Options) ([]hub.DriverSummary, error) {
	if opts.Authority.IsZero() {
		return nil, ErrNoAuthority
	}
	drivers, err := NewClient(opts).ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	return selector.Sorted(drivers), nil
}

// cancelled drops errors caused by the operator interrupting, including an
// interrupt while a prompt was waiting for an answer.
func cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
