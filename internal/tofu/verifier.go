// Package tofu verifies hub certificates by trust on first use.
//
// The first time a hub is seen, or when its certificate no longer matches the
// pinned fingerprint, the operator is shown the fingerprint and asked to
// confirm. Accepted fingerprints are written to the known hubs file; a
// declined prompt leaves the file untouched and fails verification.
package tofu

import (
	"context"
	"crypto/x509"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"edgelog/internal/hub"
	"edgelog/internal/logging"
	"edgelog/internal/trust"
)

// ConfirmQuestion is asked before an unknown certificate is trusted.
const ConfirmQuestion = "Are you sure you want to continue connecting?"

// Confirmer asks the operator a yes/no question. It returns ctx.Err() when
// ctx is done before the operator answers.
type Confirmer interface {
	Confirm(ctx context.Context, question string, def bool) (bool, error)
}

// Warner shows a non-fatal message to the operator.
type Warner interface {
	Warn(msg string)
}

// State is where an authority is in verification.
type State int

const (
	Unverified State = iota
	PendingConfirmation
	Verified
	Rejected
)

func (s State) String() string {
	switch s {
	case PendingConfirmation:
		return "pending-confirmation"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	default:
		return "unverified"
	}
}

// Config configures a Verifier.
type Config struct {
	Store     *trust.Store
	Confirmer Confirmer
	Warner    Warner
	Logger    *slog.Logger
}

// Verifier implements hub.HostVerifier against a trust.Store.
type Verifier struct {
	store     *trust.Store
	confirmer Confirmer
	warner    Warner
	logger    *slog.Logger

	mu     sync.Mutex
	states map[string]State
	// known is the known hubs file as loaded by the first Verify. It is
	// written back whole when a certificate is accepted.
	known map[string]trust.Record
}

var _ hub.HostVerifier = (*Verifier)(nil)

// New creates a Verifier.
func New(cfg Config) *Verifier {
	return &Verifier{
		store:     cfg.Store,
		confirmer: cfg.Confirmer,
		warner:    cfg.Warner,
		logger:    logging.Default(cfg.Logger).With("component", "tofu"),
		states:    make(map[string]State),
	}
}

// State returns the verification state of authority.
func (v *Verifier) State(authority string) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.states[authority]
}

// Verify checks cert against the pinned fingerprint for authority, prompting
// the operator when there is none or it differs. Verified and Rejected are
// final: later calls return the same outcome without prompting.
func (v *Verifier) Verify(ctx context.Context, authority string, cert *x509.Certificate) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.states[authority] {
	case Verified:
		return nil
	case Rejected:
		return v.rejected(authority)
	}

	fingerprint := trust.Fingerprint(cert)
	if v.known == nil {
		hubs, err := v.store.Load()
		if err != nil {
			return fmt.Errorf("load known hubs: %w", err)
		}
		v.known = hubs
	}
	known, ok := v.known[authority]
	if ok && known.Fingerprint == fingerprint {
		v.logger.Debug("certificate matches known hub", "authority", authority)
		v.states[authority] = Verified
		return nil
	}

	v.states[authority] = PendingConfirmation
	if ok {
		v.warner.Warn(fmt.Sprintf("The certificate of %s has changed since it was added to the list of known hubs. "+
			"Known fingerprint is %s, presented fingerprint is %s", authority, known.Fingerprint, fingerprint))
	} else {
		v.warner.Warn(fmt.Sprintf("The authenticity of %s can't be established. Certificate fingerprint is %s", authority, fingerprint))
	}

	accepted, err := v.confirmer.Confirm(ctx, ConfirmQuestion, false)
	if err != nil {
		v.states[authority] = Unverified
		return fmt.Errorf("confirm hub certificate: %w", err)
	}
	if !accepted {
		v.logger.Debug("operator declined hub certificate", "authority", authority, "fingerprint", fingerprint)
		v.states[authority] = Rejected
		return v.rejected(authority)
	}

	updated := maps.Clone(v.known)
	updated[authority] = trust.Record{Hostname: authority, Fingerprint: fingerprint}
	if err := v.store.Save(updated); err != nil {
		v.states[authority] = Unverified
		return fmt.Errorf("save known hubs: %w", err)
	}
	v.known = updated
	v.warner.Warn(fmt.Sprintf("Permanently added %s to the list of known hubs.", authority))
	v.states[authority] = Verified
	return nil
}

func (v *Verifier) rejected(authority string) error {
	return hub.NewFault(hub.FaultVerificationRejected, authority, nil)
}
