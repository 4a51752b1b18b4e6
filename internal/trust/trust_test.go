package trust

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/banshee-data/godview/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestKeyPair(t *testing.T) KeyPair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return KeyPair{Public: pub, Private: priv}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	kp := newTestKeyPair(t)
	meta := &model.EnvelopeMetadata{
		AgentID:     "agent-1",
		TimestampMs: uint64(time.Now().UnixMilli()),
		PacketType:  "observation",
	}
	env := Sign([]byte("payload"), kp, meta)

	layer := NewLayer(NewRevocationList())
	require.NoError(t, layer.Verify(env))
}

func TestVerify_InvalidSignatureRejected(t *testing.T) {
	kp := newTestKeyPair(t)
	env := Sign([]byte("payload"), kp, nil)
	env.Payload = []byte("tampered")

	layer := NewLayer(NewRevocationList())
	err := layer.Verify(env)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_RevokedKeyRejected(t *testing.T) {
	kp := newTestKeyPair(t)
	env := Sign([]byte("payload"), kp, nil)

	revoked := NewRevocationList()
	require.NoError(t, revoked.Revoke(env.PublicKey))

	layer := NewLayer(revoked)
	err := layer.Verify(env)
	require.ErrorIs(t, err, ErrRevoked)
}

func TestVerify_ExpiredRejected(t *testing.T) {
	kp := newTestKeyPair(t)
	old := time.Now().Add(-1 * time.Hour)
	env := Sign([]byte("payload"), kp, &model.EnvelopeMetadata{
		AgentID:     "agent-1",
		TimestampMs: uint64(old.UnixMilli()),
	})

	layer := NewLayer(NewRevocationList()).WithTrustHorizon(10 * time.Second)
	err := layer.Verify(env)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_NoMetadataSkipsFreshnessCheck(t *testing.T) {
	kp := newTestKeyPair(t)
	env := Sign([]byte("payload"), kp, nil)

	layer := NewLayer(NewRevocationList())
	require.NoError(t, layer.Verify(env))
}

func TestVerify_WithClockUsesInjectedTime(t *testing.T) {
	kp := newTestKeyPair(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env := Sign([]byte("payload"), kp, &model.EnvelopeMetadata{
		TimestampMs: uint64(base.UnixMilli()),
	})

	layer := NewLayer(NewRevocationList()).WithClock(func() time.Time {
		return base.Add(1 * time.Second)
	})
	require.NoError(t, layer.Verify(env))

	layerLate := NewLayer(NewRevocationList()).WithClock(func() time.Time {
		return base.Add(1 * time.Hour)
	})
	require.ErrorIs(t, layerLate.Verify(env), ErrExpired)
}
