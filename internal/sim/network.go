package sim

import (
	"github.com/google/uuid"

	"github.com/banshee-data/godview/internal/agent"
	"github.com/banshee-data/godview/internal/clock"
)

// linkKey identifies one directed agent-to-agent link.
type linkKey struct {
	from, to uuid.UUID
}

// pendingDelivery is one envelope in flight, due at a simulated tick.
type pendingDelivery struct {
	to      uuid.UUID
	inbound agent.Inbound
	dueTick uint64
}

// LinkController lets a scenario script inject faults on specific
// links: partitions, elevated loss, and latency.
type LinkController struct {
	partitioned map[linkKey]bool
	lossRate    map[linkKey]float64
	latencyTicks map[linkKey]uint64
	defaultLoss float64
	defaultLatency uint64
}

// NewLinkController constructs a controller with no partitions and the
// given default loss rate / latency applied to every link absent a
// specific override.
func NewLinkController(defaultLoss float64, defaultLatencyTicks uint64) *LinkController {
	return &LinkController{
		partitioned:  make(map[linkKey]bool),
		lossRate:     make(map[linkKey]float64),
		latencyTicks: make(map[linkKey]uint64),
		defaultLoss:  defaultLoss,
		defaultLatency: defaultLatencyTicks,
	}
}

// Partition marks the link between a and b (both directions) as cut.
func (c *LinkController) Partition(a, b uuid.UUID) {
	c.partitioned[linkKey{a, b}] = true
	c.partitioned[linkKey{b, a}] = true
}

// Heal removes a partition between a and b (both directions).
func (c *LinkController) Heal(a, b uuid.UUID) {
	delete(c.partitioned, linkKey{a, b})
	delete(c.partitioned, linkKey{b, a})
}

// SetLoss overrides the loss rate for the directed link from->to.
func (c *LinkController) SetLoss(from, to uuid.UUID, rate float64) {
	c.lossRate[linkKey{from, to}] = rate
}

// SetLatency overrides the latency in ticks for the directed link
// from->to.
func (c *LinkController) SetLatency(from, to uuid.UUID, ticks uint64) {
	c.latencyTicks[linkKey{from, to}] = ticks
}

func (c *LinkController) isPartitioned(from, to uuid.UUID) bool {
	return c.partitioned[linkKey{from, to}]
}

func (c *LinkController) lossFor(from, to uuid.UUID) float64 {
	if v, ok := c.lossRate[linkKey{from, to}]; ok {
		return v
	}
	return c.defaultLoss
}

func (c *LinkController) latencyFor(from, to uuid.UUID) uint64 {
	if v, ok := c.latencyTicks[linkKey{from, to}]; ok {
		return v
	}
	return c.defaultLatency
}

// Network is a gossip router over a grid topology with 8-neighborhood
// adjacency. It owns per-agent inboxes; agents
// never write to each other directly.
type Network struct {
	rows, cols int
	ids        []uuid.UUID // row-major
	indexOf    map[uuid.UUID]int

	controller *LinkController
	entropy    clock.Entropy

	inbox   map[uuid.UUID][]agent.Inbound
	pending []pendingDelivery

	droppedCount   int
	attemptedCount int
	currentTick    uint64
}

// NewNetwork lays out rows*cols agent ids on a grid in row-major order
// and wires an 8-neighborhood adjacency over them.
func NewNetwork(ids []uuid.UUID, rows, cols int, controller *LinkController, entropy clock.Entropy) *Network {
	n := &Network{
		rows:       rows,
		cols:       cols,
		ids:        ids,
		indexOf:    make(map[uuid.UUID]int, len(ids)),
		controller: controller,
		entropy:    entropy,
		inbox:      make(map[uuid.UUID][]agent.Inbound, len(ids)),
	}
	for i, id := range ids {
		n.indexOf[id] = i
	}
	return n
}

// Neighbors returns id's 8-neighborhood grid adjacency, excluding
// partitioned links.
func (n *Network) Neighbors(id uuid.UUID) []uuid.UUID {
	idx, ok := n.indexOf[id]
	if !ok {
		return nil
	}
	r, c := idx/n.cols, idx%n.cols

	var out []uuid.UUID
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			nr, nc := r+dr, c+dc
			if nr < 0 || nr >= n.rows || nc < 0 || nc >= n.cols {
				continue
			}
			neighbor := n.ids[nr*n.cols+nc]
			if n.controller.isPartitioned(id, neighbor) {
				continue
			}
			out = append(out, neighbor)
		}
	}
	return out
}

// Send enqueues one envelope from `from` to `to`, applying the
// controller's loss rate and latency for that directed link. Loss is
// sampled from the harness entropy stream so delivery is reproducible.
func (n *Network) Send(from, to uuid.UUID, out agent.Outbound) {
	n.attemptedCount++
	if n.controller.isPartitioned(from, to) {
		n.droppedCount++
		return
	}
	if n.entropy.Float64() < n.controller.lossFor(from, to) {
		n.droppedCount++
		return
	}

	latency := n.controller.latencyFor(from, to)
	n.pending = append(n.pending, pendingDelivery{
		to:      to,
		inbound: agent.Inbound{Envelope: out.Envelope, From: from},
		dueTick: n.currentTick + latency,
	})
}

// Tick advances the network's delivery clock by one tick, moving any
// deliveries now due into their recipient's inbox. It must be called
// once per simulated tick, after every agent's outbound packets for
// that tick have been Send'd.
func (n *Network) Tick() {
	n.currentTick++

	remaining := n.pending[:0]
	for _, p := range n.pending {
		if p.dueTick <= n.currentTick {
			n.inbox[p.to] = append(n.inbox[p.to], p.inbound)
			continue
		}
		remaining = append(remaining, p)
	}
	n.pending = remaining
}

// Take drains and returns every envelope currently queued for
// recipient id.
func (n *Network) Take(id uuid.UUID) []agent.Inbound {
	out := n.inbox[id]
	delete(n.inbox, id)
	return out
}

// DropStats returns (dropped, attempted) send counts so far, used by
// scenario predicates that assert an observed loss rate.
func (n *Network) DropStats() (dropped, attempted int) {
	return n.droppedCount, n.attemptedCount
}
