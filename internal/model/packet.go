package model

import "github.com/google/uuid"

// ObservationPacket is the sender's opinion of a detected object.
// Different senders routinely mint different LocalID values for
// the same physical object — the "ghost" problem the tracking engine's
// identity merge exists to resolve.
type ObservationPacket struct {
	LocalID     uuid.UUID // sender's opinion of the object's identifier
	Position    Vec3
	Velocity    Vec3
	ClassID     uint32
	TimestampS  float64 // seconds, sender's clock
	Confidence  float32 // [0,1]
}

// EnvelopeMetadata is the optional fixed-schema metadata block carried
// by a Envelope. There is no dynamic introspection here, only this
// fixed set of named fields. DecodeEnvelope reads exactly these three
// fields; bytes left over after a well-formed envelope are rejected
// with ErrSerialization, not logged and skipped.
type EnvelopeMetadata struct {
	AgentID     string
	TimestampMs uint64
	PacketType  string
}

// Envelope wraps a signed ObservationPacket payload. Envelopes
// are immutable once created by Sign; every field on the payload must
// pass Verify before it is trusted by any engine.
type Envelope struct {
	Payload   []byte // encoded ObservationPacket
	PublicKey [32]byte
	Signature [64]byte
	Metadata  *EnvelopeMetadata // optional
	Hops      uint8
}

// WithIncrementedHop returns a copy of e with Hops incremented by one,
// saturating at 255 rather than wrapping — a packet with a saturated
// hop count is dropped well before it could wrap.
func (e Envelope) WithIncrementedHop() Envelope {
	cp := e
	if cp.Hops < 255 {
		cp.Hops++
	}
	return cp
}
