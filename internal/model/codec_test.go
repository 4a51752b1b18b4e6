package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePacket_RoundTrip(t *testing.T) {
	p := ObservationPacket{
		LocalID:    uuid.New(),
		Position:   Vec3{X: 1.5, Y: -2.25, Z: 100.125},
		Velocity:   Vec3{X: 10, Y: -5, Z: 0},
		ClassID:    7,
		TimestampS: 1234.5678,
		Confidence: 0.87,
	}

	wire := EncodePacket(p)
	require.Len(t, wire, ObservationPacketWireSize)

	got, err := DecodePacket(wire)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePacket_WrongSize(t *testing.T) {
	_, err := DecodePacket(make([]byte, 10))
	require.ErrorIs(t, err, ErrSerialization)
}

func TestEncodeDecodeEnvelope_RoundTrip(t *testing.T) {
	e := Envelope{
		Payload:   []byte("hello world"),
		PublicKey: [32]byte{1, 2, 3},
		Signature: [64]byte{4, 5, 6},
		Metadata: &EnvelopeMetadata{
			AgentID:     "agent-7",
			TimestampMs: 99999,
			PacketType:  "observation",
		},
		Hops: 3,
	}

	wire := EncodeEnvelope(e)
	got, err := DecodeEnvelope(wire)
	require.NoError(t, err)
	if diff := cmp.Diff(e, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDecodeEnvelope_NoMetadata(t *testing.T) {
	e := Envelope{
		Payload:   []byte("payload"),
		PublicKey: [32]byte{9},
		Signature: [64]byte{8},
		Hops:      0,
	}

	wire := EncodeEnvelope(e)
	got, err := DecodeEnvelope(wire)
	require.NoError(t, err)
	require.Nil(t, got.Metadata)
	if diff := cmp.Diff(e, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEnvelope_TruncatedFails(t *testing.T) {
	e := Envelope{Payload: []byte("x"), Hops: 1}
	wire := EncodeEnvelope(e)
	_, err := DecodeEnvelope(wire[:len(wire)-2])
	require.ErrorIs(t, err, ErrSerialization)
}

func TestEnvelope_WithIncrementedHop_Saturates(t *testing.T) {
	e := Envelope{Hops: 255}
	got := e.WithIncrementedHop()
	require.Equal(t, uint8(255), got.Hops)

	e2 := Envelope{Hops: 3}
	got2 := e2.WithIncrementedHop()
	require.Equal(t, uint8(4), got2.Hops)
}
