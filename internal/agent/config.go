// Package agent implements the per-tick runtime that composes the
// trust, time, space, tracking, adaptive, and evolutionary layers into
// one agent process.
package agent

import (
	"time"

	"github.com/banshee-data/godview/internal/adaptive"
	"github.com/banshee-data/godview/internal/evolution"
	"github.com/banshee-data/godview/internal/timeengine"
	"github.com/banshee-data/godview/internal/tracking"
)

// Config tunes one agent's runtime.
type Config struct {
	TickInterval time.Duration

	// EpochLengthTicks is the number of ticks between evolutionary
	// steps.
	EpochLengthTicks uint64

	// Energy model.
	StartingEnergy        float64
	IdleEnergyCostPerTick float64
	EnergyCostPerReading  float64
	EnergyCostPerByte     float64

	// SensorNoiseVariance seeds the measurement covariance used when
	// folding a local sensor reading into the time engine.
	SensorNoiseVariance float64

	TrustHorizon   time.Duration
	DecayRate      float64 // confidence decay rate, per second
	Tracking       tracking.Config
	TimeEngine     timeengine.Config
	InitialParams  evolution.Params
	FitnessProvider evolution.Provider

	// EnableRelay turns on multi-hop re-gossip: an accepted gossip
	// envelope is queued for forwarding to this agent's own neighbors
	// on its next broadcast, instead of being absorbed into tracking
	// only. Off by default — the named scenarios' energy and bandwidth
	// budgets (§8) were tuned against single-hop gossip, where each
	// agent senses its own tracked entity directly and gossip exists
	// for identity convergence rather than multi-hop propagation.
	// MaxHops bounds relay once enabled: once Hops reaches MaxHops the
	// envelope is absorbed into this agent's own tracks but never
	// forwarded again, preventing unbounded recirculation in
	// partitioned or cyclic topologies.
	EnableRelay bool
	MaxHops     uint8

	// EnableQuarantine and QuarantineTicks configure the bad-actor
	// cooldown: off by default, so the literal spec behavior (drop
	// packets one at a time by per-packet reliability) is what runs
	// unless a caller opts in.
	EnableQuarantine bool
	QuarantineTicks  uint64
}

// DefaultConfig returns the spec's default tuning for a single agent.
func DefaultConfig() Config {
	return Config{
		TickInterval:          time.Second / 30,
		EpochLengthTicks:      150,
		StartingEnergy:        1000,
		IdleEnergyCostPerTick: 0.01,
		EnergyCostPerReading:  0.05,
		EnergyCostPerByte:     0.001,
		SensorNoiseVariance:   4.0,
		TrustHorizon:          10 * time.Second,
		DecayRate:             adaptive.DefaultDecayRate,
		Tracking:              tracking.DefaultConfig(),
		TimeEngine:            timeengine.DefaultConfig(),
		InitialParams:         evolution.DefaultParams(),
		FitnessProvider:       evolution.OracleProvider{},
		EnableRelay:           false,
		MaxHops:               8,
		EnableQuarantine:      false,
		QuarantineTicks:       150,
	}
}
