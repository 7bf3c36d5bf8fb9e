// Package hub talks to an automation hub's live-logging endpoint on the local
// network: driver listing, log stream URLs and opening the event stream.
//
// Hubs present self-signed certificates, so the TLS layer accepts any
// certificate and trust is decided by a HostVerifier once the first response
// arrives.
package hub

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"edgelog/internal/logging"
)

// DefaultRequestTimeout bounds ListDrivers.
const DefaultRequestTimeout = 5 * time.Second

// maxResponseSize bounds non-streaming response reads.
const maxResponseSize int64 = 16 << 20

// HostVerifier decides whether the certificate presented by the hub at
// authority is trusted. A non-nil error aborts the request.
type HostVerifier interface {
	Verify(ctx context.Context, authority string, cert *x509.Certificate) error
}

// Options configures a Client.
type Options struct {
	Authenticator Authenticator
	// Verifier is consulted once, after the first successful response.
	// Nil trusts every hub.
	Verifier       HostVerifier
	RequestTimeout time.Duration
	Logger         *slog.Logger
	// DialContext overrides how TCP connections are made.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Client makes authenticated requests to one hub.
type Client struct {
	authority      Authority
	base           url.URL
	http           *http.Client
	auth           Authenticator
	verifier       HostVerifier
	requestTimeout time.Duration
	logger         *slog.Logger

	peer atomic.Pointer[x509.Certificate]

	verifyMu  sync.Mutex
	verified  bool
	rejection error
}

// New creates a client for the hub at authority.
func New(authority Authority, opts Options) *Client {
	if opts.Authenticator == nil {
		opts.Authenticator = NoAuth()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // hubs are self-signed; HostVerifier pins the certificate
			MinVersion:         tls.VersionTLS12,
		},
		DialContext:         opts.DialContext,
		TLSHandshakeTimeout: opts.RequestTimeout,
	}

	return &Client{
		authority:      authority,
		base:           url.URL{Scheme: "https", Host: authority.String()},
		http:           &http.Client{Transport: transport},
		auth:           opts.Authenticator,
		verifier:       opts.Verifier,
		verified:       opts.Verifier == nil,
		requestTimeout: opts.RequestTimeout,
		logger:         logging.Default(opts.Logger).With("component", "hub-client", "authority", authority.String()),
	}
}

// Authority returns the hub this client talks to.
func (c *Client) Authority() Authority {
	return c.authority
}

// ListDrivers returns the drivers running on the hub.
func (c *Client) ListDrivers(ctx context.Context) ([]DriverSummary, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	u := c.base
	u.Path = "/drivers"
	resp, err := c.do(reqCtx, u.String(), "application/json")
	if err != nil {
		return nil, c.fault(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.fault(fmt.Errorf("read drivers: %w", err))
	}

	// The body is read before verifying so an operator pondering the prompt
	// does not run into the request deadline.
	if err := c.verifyPeer(ctx); err != nil {
		return nil, err
	}

	var drivers []DriverSummary
	if err := json.Unmarshal(data, &drivers); err != nil {
		return nil, NewFault(FaultUnexpected, c.authority.String(), fmt.Errorf("decode drivers: %w", err))
	}
	for _, d := range drivers {
		if _, ok := d.UUID(); !ok {
			c.logger.Debug("driver id is not a UUID", "driver_id", d.DriverID, "driver_name", d.DriverName)
		}
	}
	c.logger.Debug("listed drivers", "count", len(drivers))
	return drivers, nil
}

// LogSourceURL returns the event stream URL for one driver, or for all
// drivers when driverID is empty.
func (c *Client) LogSourceURL(driverID string) string {
	u := c.base
	u.Path = "/drivers/logs"
	if driverID != "" {
		u.RawQuery = url.Values{"driver_id": {driverID}}.Encode()
	}
	return u.String()
}

// OpenStream opens the event stream at rawURL. The caller owns the returned
// body; it stays open until closed or ctx is cancelled. A non-2xx response
// is returned as *StatusError.
func (c *Client) OpenStream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, rawURL, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if err := c.verifyPeer(ctx); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !IsEventStream(ct) {
		c.logger.Debug("unexpected stream content type", "content_type", ct)
	}
	return resp.Body, nil
}

// PeerCertificate returns the leaf certificate from the most recent
// handshake, or nil before any response.
func (c *Client) PeerCertificate() *x509.Certificate {
	return c.peer.Load()
}

// do performs an authenticated GET. Non-2xx responses are drained and
// returned as *StatusError.
func (c *Client) do(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if err := c.rejected(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if err := c.auth.Authenticate(ctx, req); err != nil {
		return nil, fmt.Errorf("authenticate request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logFailure(ctx, req, err)
		return nil, err
	}
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		c.peer.Store(resp.TLS.PeerCertificates[0])
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}
	return resp, nil
}

// fault converts a request error into an operator-facing fault.
func (c *Client) fault(err error) error {
	authority := c.authority.String()
	if se, ok := err.(*StatusError); ok { //nolint:errorlint // do returns it unwrapped
		if se.Unauthorized() {
			return NewFault(FaultUnauthorized, authority, se)
		}
		return NewFault(FaultUnexpected, authority, se)
	}
	if f := Classify(authority, err); f != nil {
		return f
	}
	return NewFault(FaultUnexpected, authority, err)
}

func (c *Client) rejected() error {
	c.verifyMu.Lock()
	defer c.verifyMu.Unlock()
	return c.rejection
}

// verifyPeer runs the verifier once per client. A rejection is remembered
// and returned by every later request without touching the network.
func (c *Client) verifyPeer(ctx context.Context) error {
	c.verifyMu.Lock()
	defer c.verifyMu.Unlock()

	if c.rejection != nil {
		return c.rejection
	}
	if c.verified {
		return nil
	}

	cert := c.peer.Load()
	if cert == nil {
		c.rejection = NewFault(FaultVerificationRejected, c.authority.String(), fmt.Errorf("no peer certificate"))
		return c.rejection
	}
	if err := c.verifier.Verify(ctx, c.authority.String(), cert); err != nil {
		c.logger.Debug("host verification failed", "error", err)
		c.rejection = err
		return err
	}
	c.verified = true
	return nil
}

func (c *Client) logFailure(ctx context.Context, req *http.Request, err error) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	c.logger.Debug("error connecting to live-logging",
		"url", req.URL.String(),
		"headers", logging.Scrub(fmt.Sprint(req.Header)),
		"error", logging.Scrub(err.Error()),
		"interfaces", networkInterfaces(),
	)
}
