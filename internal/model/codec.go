package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ErrSerialization is returned when a wire buffer does not decode to a
// well-formed value — truncated, wrong length, or internally
// inconsistent length prefixes.
var ErrSerialization = errors.New("model: serialization error")

// ObservationPacketWireSize is the fixed encoded size of an
// ObservationPacket: 16B id + 3x f64 position + 3x f64
// velocity + u32 class id + f64 timestamp + f32 confidence.
const ObservationPacketWireSize = 16 + 24 + 24 + 4 + 8 + 4

// EncodePacket serializes p into the little-endian fixed layout. The
// byte order is fixed regardless of host architecture
// so that two agents (or two runs on different machines) produce
// byte-identical wire output from identical values.
func EncodePacket(p ObservationPacket) []byte {
	buf := make([]byte, ObservationPacketWireSize)
	idBytes, _ := p.LocalID.MarshalBinary() // uuid.UUID.MarshalBinary never errors
	copy(buf[0:16], idBytes)

	off := 16
	putFloat64(buf[off:], p.Position.X)
	putFloat64(buf[off+8:], p.Position.Y)
	putFloat64(buf[off+16:], p.Position.Z)
	off += 24
	putFloat64(buf[off:], p.Velocity.X)
	putFloat64(buf[off+8:], p.Velocity.Y)
	putFloat64(buf[off+16:], p.Velocity.Z)
	off += 24
	binary.LittleEndian.PutUint32(buf[off:], p.ClassID)
	off += 4
	putFloat64(buf[off:], p.TimestampS)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.Confidence))

	return buf
}

// DecodePacket decodes a wire-format ObservationPacket. Returns
// ErrSerialization if b is not exactly ObservationPacketWireSize bytes.
func DecodePacket(b []byte) (ObservationPacket, error) {
	if len(b) != ObservationPacketWireSize {
		return ObservationPacket{}, fmt.Errorf("%w: packet has %d bytes, want %d", ErrSerialization, len(b), ObservationPacketWireSize)
	}

	var p ObservationPacket
	id, err := uuid.FromBytes(b[0:16])
	if err != nil {
		return ObservationPacket{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	p.LocalID = id

	off := 16
	p.Position = Vec3{
		X: getFloat64(b[off:]),
		Y: getFloat64(b[off+8:]),
		Z: getFloat64(b[off+16:]),
	}
	off += 24
	p.Velocity = Vec3{
		X: getFloat64(b[off:]),
		Y: getFloat64(b[off+8:]),
		Z: getFloat64(b[off+16:]),
	}
	off += 24
	p.ClassID = binary.LittleEndian.Uint32(b[off:])
	off += 4
	p.TimestampS = getFloat64(b[off:])
	off += 8
	p.Confidence = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))

	return p, nil
}

// EncodeEnvelope serializes an Envelope: a u32-length-prefixed payload,
// the fixed-size public key and signature, an optional metadata block
// flagged by a single byte, and the trailing hop counter.
func EncodeEnvelope(e Envelope) []byte {
	var buf bytes.Buffer

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(e.Payload)))
	buf.Write(lenBuf[:])
	buf.Write(e.Payload)

	buf.Write(e.PublicKey[:])
	buf.Write(e.Signature[:])

	if e.Metadata == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeLengthPrefixedString(&buf, e.Metadata.AgentID)
		var tsBuf [8]byte
		binary.LittleEndian.PutUint64(tsBuf[:], e.Metadata.TimestampMs)
		buf.Write(tsBuf[:])
		writeLengthPrefixedString(&buf, e.Metadata.PacketType)
	}

	buf.WriteByte(e.Hops)

	return buf.Bytes()
}

// DecodeEnvelope decodes an Envelope produced by EncodeEnvelope.
// Unknown trailing bytes after a well-formed envelope are an error:
// the schema is fixed, there is no forward
// extension point to silently ignore.
func DecodeEnvelope(b []byte) (Envelope, error) {
	r := bytes.NewReader(b)
	var e Envelope

	payloadLen, err := readUint32(r)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: payload length: %v", ErrSerialization, err)
	}
	payload := make([]byte, payloadLen)
	if _, err := readFull(r, payload); err != nil {
		return Envelope{}, fmt.Errorf("%w: payload: %v", ErrSerialization, err)
	}
	e.Payload = payload

	if _, err := readFull(r, e.PublicKey[:]); err != nil {
		return Envelope{}, fmt.Errorf("%w: public key: %v", ErrSerialization, err)
	}
	if _, err := readFull(r, e.Signature[:]); err != nil {
		return Envelope{}, fmt.Errorf("%w: signature: %v", ErrSerialization, err)
	}

	hasMeta, err := r.ReadByte()
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: metadata flag: %v", ErrSerialization, err)
	}
	if hasMeta == 1 {
		agentID, err := readLengthPrefixedString(r)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: agent id: %v", ErrSerialization, err)
		}
		tsMs, err := readUint64(r)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: timestamp: %v", ErrSerialization, err)
		}
		packetType, err := readLengthPrefixedString(r)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: packet type: %v", ErrSerialization, err)
		}
		e.Metadata = &EnvelopeMetadata{AgentID: agentID, TimestampMs: tsMs, PacketType: packetType}
	}

	hops, err := r.ReadByte()
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: hop counter: %v", ErrSerialization, err)
	}
	e.Hops = hops

	if r.Len() != 0 {
		return Envelope{}, fmt.Errorf("%w: %d trailing bytes", ErrSerialization, r.Len())
	}

	return e, nil
}

func putFloat64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

func getFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func writeLengthPrefixedString(buf *bytes.Buffer, s string) {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func readLengthPrefixedString(r *bytes.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint16(lenBuf[:])
	s := make([]byte, n)
	if _, err := readFull(r, s); err != nil {
		return "", err
	}
	return string(s), nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n, err := r.Read(b)
	if err != nil {
		return n, err
	}
	if n != len(b) {
		return n, fmt.Errorf("short read: got %d want %d", n, len(b))
	}
	return n, nil
}
