package evolution

import "github.com/banshee-data/godview/internal/clock"

// EnergyEmergencyFloor is the energy level below which should_broadcast
// always returns false regardless of the active gossip interval.
const EnergyEmergencyFloor = 50.0

// Optimizer runs single-parameter hill climbing over fixed-length
// epochs. It holds the active parameter record, the
// previous epoch's fitness for comparison, and the entropy stream used
// to sample the next mutation — all local to one agent.
type Optimizer struct {
	provider Provider
	entropy  clock.Entropy

	active       Params
	previous     Params
	lastFitness  float64
	haveBaseline bool
	pendingMut   MutationKind
}

// NewOptimizer constructs an Optimizer seeded at start, scoring epochs
// with provider and sampling mutations from entropy.
func NewOptimizer(start Params, provider Provider, entropy clock.Entropy) *Optimizer {
	o := &Optimizer{provider: provider, entropy: entropy, active: start, previous: start}
	o.sampleNextMutation()
	return o
}

// Active returns the currently active parameter record.
func (o *Optimizer) Active() Params { return o.active }

// ShouldBroadcast reports whether the agent should attempt to gossip
// this tick, honoring both the active gossip interval and the energy
// emergency override.
func (o *Optimizer) ShouldBroadcast(tick uint64, energyRemaining float64) bool {
	if energyRemaining < EnergyEmergencyFloor {
		return false
	}
	interval := o.active.GossipIntervalTicks
	if interval < 1 {
		interval = 1
	}
	return tick%uint64(interval) == 0
}

// EndEpoch closes out one epoch given its aggregated metrics: scores
// fitness, keeps the mutation if fitness did not decrease or reverts to
// the previous record otherwise, then samples and applies the next
// mutation -(iv)). It returns the fitness just
// computed.
func (o *Optimizer) EndEpoch(m Metrics) float64 {
	fitness := o.provider.Fitness(m)

	if o.haveBaseline && fitness < o.lastFitness {
		o.active = o.previous
	} else {
		o.previous = o.active
	}
	o.lastFitness = fitness
	o.haveBaseline = true

	o.active = Apply(o.active, o.pendingMut)
	o.sampleNextMutation()

	return fitness
}

func (o *Optimizer) sampleNextMutation() {
	o.pendingMut = AllMutations[o.entropy.Intn(len(AllMutations))]
}
