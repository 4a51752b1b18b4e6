// Package adaptive maintains per-neighbor reputations and per-track
// confidences. Neither structure touches the network or
// the tracking engine directly: the agent runtime feeds outcomes in and
// reads reliability/confidence back out.
package adaptive

import (
	"math"

	"github.com/google/uuid"
)

// Outcome classifies what a gossiped packet did once it reached the
// tracking pipeline, driving the reputation update for the neighbor
// that sent it.
type Outcome int

const (
	// OutcomeUseful means the packet produced a new track or a
	// corroborating update to an existing one.
	OutcomeUseful Outcome = iota
	// OutcomeRedundant means the packet duplicated an existing
	// high-confidence track without adding information.
	OutcomeRedundant
	// OutcomeWrong means the packet contradicted a high-confidence
	// track by more than the gating distance.
	OutcomeWrong
)

const (
	reputationUsefulDelta   = 0.01
	reputationRedundantCost = 0.001
	reputationWrongCost     = 0.05

	// ReliableThreshold and BadActorThreshold are the derived
	// predicates over reliability score.
	ReliableThreshold  = 0.3
	BadActorThreshold  = 0.2
	badActorMinSamples = 10
)

// Reputation tracks one (observer, neighbor) pair's packet history.
type Reputation struct {
	Received    int
	Useful      int
	Redundant   int
	Wrong       int
	Reliability float64

	// QuarantineUntilTick is nonzero while this neighbor is serving a
	// cooldown after crossing the bad-actor threshold; see
	// ReputationBook's EnableQuarantine.
	QuarantineUntilTick uint64
}

// neutralReliability is the reliability a neighbor starts at on first
// contact: neither trusted nor distrusted, so a single bad outcome
// doesn't immediately drop it below ReliableThreshold and a single
// good outcome doesn't immediately clear BadActorThreshold.
const neutralReliability = 0.5

// newReputation constructs a Reputation with reliability seeded
// neutral rather than the zero value.
func newReputation() *Reputation {
	return &Reputation{Reliability: neutralReliability}
}

// Apply folds one outcome into r, clamping reliability to [0,1] per the
// reputation-bounds invariant.
func (r *Reputation) Apply(outcome Outcome) {
	r.Received++
	switch outcome {
	case OutcomeUseful:
		r.Useful++
		r.Reliability = math.Min(1.0, r.Reliability+reputationUsefulDelta)
	case OutcomeRedundant:
		r.Redundant++
		r.Reliability = math.Max(0.0, r.Reliability-reputationRedundantCost)
	case OutcomeWrong:
		r.Wrong++
		r.Reliability = math.Max(0.0, r.Reliability-reputationWrongCost)
	}
}

// Reliable reports whether this neighbor's reliability meets the
// acceptance threshold.
func (r *Reputation) Reliable() bool { return r.Reliability >= ReliableThreshold }

// BadActor reports whether this neighbor has produced enough samples to
// be confidently classified as unreliable.
func (r *Reputation) BadActor() bool {
	return r.Reliability < BadActorThreshold && r.Received >= badActorMinSamples
}

// ReputationBook tracks every neighbor this agent has heard from,
// keyed by the neighbor's agent identifier.
type ReputationBook struct {
	byNeighbor map[uuid.UUID]*Reputation

	// EnableQuarantine, when true, suppresses *all* traffic from a
	// neighbor for QuarantineTicks once it crosses the bad-actor
	// threshold, rather than only dropping individual low-reputation
	// packets one at a time. Off by default so the literal spec
	// behavior (per-packet reliability filtering) is what Accept
	// enforces unless a caller opts in.
	EnableQuarantine bool
	QuarantineTicks  uint64
}

// NewReputationBook constructs an empty book. Unknown neighbors are
// treated as accepted until their first recorded outcome.
func NewReputationBook() *ReputationBook {
	return &ReputationBook{byNeighbor: make(map[uuid.UUID]*Reputation)}
}

// WithQuarantine returns b configured to quarantine bad actors for
// ticks scheduling steps once they cross the bad-actor threshold.
func (b *ReputationBook) WithQuarantine(ticks uint64) *ReputationBook {
	b.EnableQuarantine = true
	b.QuarantineTicks = ticks
	return b
}

// Accept reports whether a packet from neighbor should be admitted to
// the tracking pipeline: unknown neighbors are accepted, known
// unreliable ones are dropped.
func (b *ReputationBook) Accept(neighbor uuid.UUID) bool {
	rep, ok := b.byNeighbor[neighbor]
	if !ok {
		return true
	}
	return rep.Reliable()
}

// AcceptAt is Accept plus the bad-actor quarantine cooldown: a
// neighbor currently under quarantine is rejected outright regardless
// of its per-packet reliability score.
func (b *ReputationBook) AcceptAt(neighbor uuid.UUID, tick uint64) bool {
	rep, ok := b.byNeighbor[neighbor]
	if !ok {
		return true
	}
	if b.EnableQuarantine && rep.QuarantineUntilTick > tick {
		return false
	}
	return rep.Reliable()
}

// Record folds outcome into neighbor's reputation, creating a fresh
// entry on first contact.
func (b *ReputationBook) Record(neighbor uuid.UUID, outcome Outcome) {
	b.RecordAt(neighbor, outcome, 0)
}

// RecordAt is Record plus quarantine bookkeeping: crossing into
// bad-actor status at tick starts (or extends) a QuarantineTicks
// cooldown when EnableQuarantine is set.
func (b *ReputationBook) RecordAt(neighbor uuid.UUID, outcome Outcome, tick uint64) {
	rep, ok := b.byNeighbor[neighbor]
	if !ok {
		rep = newReputation()
		b.byNeighbor[neighbor] = rep
	}
	wasBadActor := rep.BadActor()
	rep.Apply(outcome)
	if b.EnableQuarantine && !wasBadActor && rep.BadActor() {
		rep.QuarantineUntilTick = tick + b.QuarantineTicks
	}
}

// Get returns a copy of neighbor's current reputation and whether any
// packet has been recorded from them yet.
func (b *ReputationBook) Get(neighbor uuid.UUID) (Reputation, bool) {
	rep, ok := b.byNeighbor[neighbor]
	if !ok {
		return Reputation{}, false
	}
	return *rep, true
}

// BadActors returns every neighbor currently classified as a bad actor.
func (b *ReputationBook) BadActors() []uuid.UUID {
	var out []uuid.UUID
	for id, rep := range b.byNeighbor {
		if rep.BadActor() {
			out = append(out, id)
		}
	}
	return out
}
