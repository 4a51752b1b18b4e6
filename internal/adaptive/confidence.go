package adaptive

import (
	"math"

	"github.com/google/uuid"
)

const (
	confidenceDirectObsDelta    = 0.05
	confidenceCorroborationMul  = 1.10
	confidenceContradictionMul  = 0.80
	DefaultDecayRate           = 0.99 // per second
	DropThreshold              = 0.1
)

// Confidence tracks one local track's belief strength.
type Confidence struct {
	DirectObservations int
	Corroborations     int
	Contradictions     int
	LastUpdateSeconds   float64
	Value               float64
}

// ConfidenceBook tracks confidence per local track id.
type ConfidenceBook struct {
	decayRate float64
	byTrack   map[uuid.UUID]*Confidence
}

// NewConfidenceBook constructs a book using r as the continuous decay
// rate (fraction retained per second); pass DefaultDecayRate for the
// spec's default of 0.99/s.
func NewConfidenceBook(r float64) *ConfidenceBook {
	return &ConfidenceBook{decayRate: r, byTrack: make(map[uuid.UUID]*Confidence)}
}

// RecordDirectObservation bumps track's confidence for a new direct
// observation, creating an entry on first contact.
func (b *ConfidenceBook) RecordDirectObservation(track uuid.UUID, nowSeconds float64) {
	c := b.entry(track, nowSeconds)
	c.DirectObservations++
	c.Value = math.Min(1.0, c.Value+confidenceDirectObsDelta)
	c.LastUpdateSeconds = nowSeconds
}

// RecordCorroboration multiplies track's confidence up for a
// peer-agreeing observation.
func (b *ConfidenceBook) RecordCorroboration(track uuid.UUID, nowSeconds float64) {
	c := b.entry(track, nowSeconds)
	b.decayLocked(c, nowSeconds)
	c.Corroborations++
	c.Value = math.Min(1.0, c.Value*confidenceCorroborationMul)
	c.LastUpdateSeconds = nowSeconds
}

// RecordContradiction multiplies track's confidence down for a
// peer-contradicting observation.
func (b *ConfidenceBook) RecordContradiction(track uuid.UUID, nowSeconds float64) {
	c := b.entry(track, nowSeconds)
	b.decayLocked(c, nowSeconds)
	c.Contradictions++
	c.Value = math.Max(0.0, c.Value*confidenceContradictionMul)
	c.LastUpdateSeconds = nowSeconds
}

// Decay applies continuous decay to every tracked confidence up to
// nowSeconds, without otherwise touching a track's history.
func (b *ConfidenceBook) Decay(nowSeconds float64) {
	for _, c := range b.byTrack {
		b.decayLocked(c, nowSeconds)
	}
}

// Drop removes every track whose confidence has fallen to or below the
// drop threshold, returning their ids.
func (b *ConfidenceBook) Drop() []uuid.UUID {
	var dropped []uuid.UUID
	for id, c := range b.byTrack {
		if c.Value <= DropThreshold {
			dropped = append(dropped, id)
			delete(b.byTrack, id)
		}
	}
	return dropped
}

// Get returns a copy of track's confidence record and whether one
// exists.
func (b *ConfidenceBook) Get(track uuid.UUID) (Confidence, bool) {
	c, ok := b.byTrack[track]
	if !ok {
		return Confidence{}, false
	}
	return *c, true
}

// Forget removes track's confidence record entirely (used when the
// tracking engine itself drops the track for staleness).
func (b *ConfidenceBook) Forget(track uuid.UUID) {
	delete(b.byTrack, track)
}

func (b *ConfidenceBook) entry(track uuid.UUID, nowSeconds float64) *Confidence {
	c, ok := b.byTrack[track]
	if !ok {
		c = &Confidence{LastUpdateSeconds: nowSeconds}
		b.byTrack[track] = c
	}
	return c
}

func (b *ConfidenceBook) decayLocked(c *Confidence, nowSeconds float64) {
	dt := nowSeconds - c.LastUpdateSeconds
	if dt <= 0 {
		return
	}
	c.Value *= math.Pow(b.decayRate, dt)
	c.LastUpdateSeconds = nowSeconds
}
