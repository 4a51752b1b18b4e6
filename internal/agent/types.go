package agent

import (
	"github.com/google/uuid"

	"github.com/banshee-data/godview/internal/model"
)

// SensorReading is a raw local detection handed to the agent by its
// sensor driver or the simulation oracle.
type SensorReading struct {
	LocalID    uuid.UUID
	Position   model.Vec3
	Velocity   model.Vec3
	ClassID    uint32
	Confidence float32
}

// Inbound is one gossiped envelope delivered by the network layer this
// tick, tagged with the neighbor it arrived from so reputation updates
// have somewhere to land.
type Inbound struct {
	Envelope model.Envelope
	From     uuid.UUID
}

// Outbound is one signed envelope this agent wants delivered to a
// specific neighbor.
type Outbound struct {
	Envelope model.Envelope
	To       uuid.UUID
}

// TickResult reports everything observable about one Tick call: what
// should be delivered over the network, whether the agent is still
// alive, and the counters the runtime and scenario predicates read.
type TickResult struct {
	Outbound []Outbound
	Dropped  []uuid.UUID // tracks dropped for staleness this tick
	Alive    bool

	PacketsFiltered int // gossip packets dropped by the adaptive layer
	PacketsRejected int // envelopes failing trust verification

	EpochFitness     float64 // set only on an epoch boundary tick
	EpochFitnessSet  bool
}
