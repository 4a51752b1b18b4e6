// Package trust implements packet provenance verification and
// revocation. It signs outgoing observation packets with
// Ed25519 and verifies incoming envelopes against a signature, a
// revocation set, and a freshness horizon — never against the
// envelope's self-reported timestamp for clock purposes, only as a
// gate.
package trust

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/godview/internal/model"
	"github.com/banshee-data/godview/internal/monitoring"
)

// Verification failure kinds. Checked with errors.Is.
var (
	ErrInvalidSignature = errors.New("trust: invalid signature")
	ErrRevoked          = errors.New("trust: signer revoked")
	ErrExpired          = errors.New("trust: packet older than trust horizon")
)

// DefaultTrustHorizon is the default freshness gate: a metadata
// timestamp older than this relative to the verifier's own clock is
// rejected.
const DefaultTrustHorizon = 10 * time.Second

// KeyPair is an Ed25519 signing identity.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Sign produces a signed Envelope over payload. The envelope is
// immutable once returned; metadata is optional and copied by
// reference (callers should not mutate it afterward).
func Sign(payload []byte, kp KeyPair, metadata *model.EnvelopeMetadata) model.Envelope {
	sig := ed25519.Sign(kp.Private, payload)

	var env model.Envelope
	env.Payload = append([]byte(nil), payload...)
	copy(env.PublicKey[:], kp.Public)
	copy(env.Signature[:], sig)
	env.Metadata = metadata
	return env
}

// Layer verifies incoming envelopes against a revocation list and an
// optional freshness horizon. Verification never mutates Layer state;
// revocations go through the underlying RevocationList's Revoke, which
// serializes them.
type Layer struct {
	revoked      *RevocationList
	trustHorizon time.Duration
	now          func() time.Time
}

// NewLayer constructs a trust Layer backed by revoked, using
// DefaultTrustHorizon and time.Now for freshness checks.
func NewLayer(revoked *RevocationList) *Layer {
	return &Layer{
		revoked:      revoked,
		trustHorizon: DefaultTrustHorizon,
		now:          time.Now,
	}
}

// WithTrustHorizon returns a copy of l using the given horizon instead
// of DefaultTrustHorizon.
func (l *Layer) WithTrustHorizon(d time.Duration) *Layer {
	cp := *l
	cp.trustHorizon = d
	return &cp
}

// WithClock returns a copy of l using nowFn instead of time.Now — used
// by the simulation harness to bind verification freshness checks to
// the virtual clock so a run stays deterministic.
func (l *Layer) WithClock(nowFn func() time.Time) *Layer {
	cp := *l
	cp.now = nowFn
	return &cp
}

// Verify checks env's signature, revocation status, and (if metadata is
// present) freshness. It never mutates env or Layer state.
func (l *Layer) Verify(env model.Envelope) error {
	pub := ed25519.PublicKey(env.PublicKey[:])
	if !ed25519.Verify(pub, env.Payload, env.Signature[:]) {
		return ErrInvalidSignature
	}

	if l.revoked.IsRevoked(env.PublicKey) {
		return ErrRevoked
	}

	if env.Metadata != nil {
		age := l.now().Sub(time.UnixMilli(int64(env.Metadata.TimestampMs)))
		if age > l.trustHorizon {
			return fmt.Errorf("%w: age %s exceeds horizon %s", ErrExpired, age, l.trustHorizon)
		}
	}

	return nil
}

// VerifyLogged calls Verify and, on failure, logs a one-line breadcrumb
// through monitoring.Warnf before returning the error — the pattern
// every absorb-and-continue call site in the engines uses.
func (l *Layer) VerifyLogged(env model.Envelope) error {
	if err := l.Verify(env); err != nil {
		monitoring.Warnf("trust: rejecting envelope: %v", err)
		return err
	}
	return nil
}
