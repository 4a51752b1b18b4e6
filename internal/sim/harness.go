package sim

import (
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/godview/internal/agent"
	"github.com/banshee-data/godview/internal/clock"
)

// Harness is the fixed-order scheduler that drives a population of
// agents: each tick, it ticks every agent, then drains the router, then
// advances the virtual clock. This makes the whole-system
// transition function a pure function of (seed, tick number).
type Harness struct {
	provider *clock.SimProvider
	oracle   *Oracle
	network  *Network
	agents   map[uuid.UUID]*agent.Agent
	order    []uuid.UUID // deterministic iteration order

	dt   float64
	tick uint64
}

// NewHarness constructs a Harness over agents (keyed by id, iterated in
// the given fixed order), an oracle for ground truth, and a network for
// gossip delivery.
func NewHarness(provider *clock.SimProvider, oracle *Oracle, network *Network, order []uuid.UUID, agents map[uuid.UUID]*agent.Agent, dt float64) *Harness {
	return &Harness{provider: provider, oracle: oracle, network: network, agents: agents, order: order, dt: dt}
}

// Tick runs one scheduling step : every agent ticks in a, then
// the fixed iteration order, using sensor readings from the oracle and
// inbound gossip from the network; outbound packets are hand to the
// network for delivery on a later tick; the virtual clock advances
// last.
func (h *Harness) Tick() map[uuid.UUID]agent.TickResult {
	h.tick++
	readings := h.oracle.Sense(float64(h.tick) * h.dt)

	results := make(map[uuid.UUID]agent.TickResult, len(h.order))
	for _, id := range h.order {
		a, ok := h.agents[id]
		if !ok || !a.Alive() {
			continue
		}

		var localReadings []agent.SensorReading
		if pos, ok := readings[id]; ok {
			localReadings = []agent.SensorReading{{LocalID: id, Position: pos, Velocity: h.oracle.Velocity(id), Confidence: 1}}
		}

		inbound := h.network.Take(id)
		neighbors := h.network.Neighbors(id)

		res := a.Tick(h.dt, localReadings, inbound, neighbors)
		for _, out := range res.Outbound {
			h.network.Send(id, out.To, out)
		}

		if tr, ok := a.Track(id); ok {
			a.RecordPositionError(h.oracle.PositionError(id, tr.Position()))
		}

		results[id] = res
	}

	h.network.Tick()
	h.provider.Advance(time.Duration(h.dt * float64(time.Second)))
	return results
}

// TickCount is the number of scheduling steps executed so far.
func (h *Harness) TickCount() uint64 { return h.tick }
