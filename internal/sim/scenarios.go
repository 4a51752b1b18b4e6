package sim

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/godview/internal/agent"
	"github.com/banshee-data/godview/internal/clock"
	"github.com/banshee-data/godview/internal/evolution"
	"github.com/banshee-data/godview/internal/model"
	"github.com/banshee-data/godview/internal/trust"
)

// ScenarioResult reports one scenario's outcome: a human-readable
// reason and whether its pass predicate held.
type ScenarioResult struct {
	Name   string
	Passed bool
	Reason string
}

// Scenario is a function that builds its own oracle/agents/network,
// drives the harness to completion, and evaluates a pass predicate.
type Scenario func(seed uint64) ScenarioResult

// buildSwarm constructs n agents on a rows x cols grid, each directly
// sensing its own ground-truth entity, sharing one revocation list and
// key provider so the whole swarm is a pure function of seed.
func buildSwarm(seed uint64, n, rows, cols int, cfgFn func(i int) agent.Config) (*clock.SimProvider, *Oracle, *Network, []uuid.UUID, map[uuid.UUID]*agent.Agent) {
	root := clock.NewSimProvider(seed)
	keys := NewKeyProvider(seed)
	revoked := trust.NewRevocationList()
	oracle := NewOracle(clock.NewSeededEntropy(seed^clock.GoldenPrime), NoiseGaussian, 1.0)

	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		ids[i] = deterministicAgentID(seed, uint64(i))
	}

	controller := NewLinkController(0, 1)
	network := NewNetwork(ids, rows, cols, controller, clock.NewSeededEntropy(seed^clock.MixingPrime))

	agents := make(map[uuid.UUID]*agent.Agent, n)
	for i, id := range ids {
		pub, priv := keys.KeyFor(uint64(i))
		cfg := cfgFn(i)
		agents[id] = agent.New(id, cfg, clock.NewSimProvider(seed^uint64(i)*clock.GoldenPrime), trust.KeyPair{Public: pub, Private: priv}, revoked)
	}

	return root, oracle, network, ids, agents
}

// deterministicAgentID mints a stable uuid for agent index i under
// seed, so two runs with the same seed address the same agent by the
// same id.
func deterministicAgentID(seed uint64, i uint64) uuid.UUID {
	mixed := seed*clock.GoldenPrime ^ i*clock.MixingPrime
	e := clock.NewSeededEntropy(mixed)
	var b [16]byte
	for j := 0; j < 16; j += 8 {
		v := e.Uint64()
		for k := 0; k < 8; k++ {
			b[j+k] = byte(v >> (8 * k))
		}
	}
	id, _ := uuid.FromBytes(b[:])
	return id
}

func rmsPositionError(oracle *Oracle, agents map[uuid.UUID]*agent.Agent, ids []uuid.UUID) float64 {
	var sumSq float64
	var count int
	for _, id := range ids {
		a := agents[id]
		tr, ok := a.Track(id)
		if !ok {
			continue
		}
		err := oracle.PositionError(id, tr.Position())
		sumSq += err * err
		count++
	}
	if count == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(sumSq / float64(count))
}

func countAlive(agents map[uuid.UUID]*agent.Agent) int {
	n := 0
	for _, a := range agents {
		if a.Alive() {
			n++
		}
	}
	return n
}

const defaultTickRate = 30.0

// TimeWarp is scenario 1: ten entities launched on diverging
// courses; expects RMS position error under 5m after 60 simulated
// seconds.
func TimeWarp(seed uint64) ScenarioResult {
	const n = 10
	root, oracle, network, ids, agents := buildSwarm(seed, n, 2, 5, func(i int) agent.Config {
		return agent.DefaultConfig()
	})

	for i := 0; i < n; i++ {
		oracle.Spawn(ids[i],
			model.Vec3{X: 100 * float64(i), Y: 0, Z: 100 + 10*float64(i)},
			model.Vec3{X: 50, Y: 10 * (float64(i) - 5), Z: 0},
			"drone")
	}

	h := NewHarness(root, oracle, network, ids, agents, 1.0/defaultTickRate)
	ticks := uint64(60 * defaultTickRate)
	for t := uint64(0); t < ticks; t++ {
		h.Tick()
		oracle.Step(1.0 / defaultTickRate)
	}

	rms := rmsPositionError(oracle, agents, ids)
	passed := rms < 5.0
	return ScenarioResult{Name: "TimeWarp", Passed: passed, Reason: fmt.Sprintf("RMS %.2f m %s 5 m", rms, cmpWord(passed))}
}

// SplitBrain is scenario 2: six agents split into two groups of three
// for 10s then heal; expects canonical-id agreement on the shared
// target by t=45s.
func SplitBrain(seed uint64) ScenarioResult {
	const n = 6
	root, oracle, network, ids, agents := buildSwarm(seed, n, 2, 3, func(i int) agent.Config {
		return agent.DefaultConfig()
	})

	for i := 0; i < n; i++ {
		oracle.Spawn(ids[i], model.Vec3{X: float64(i), Y: 0, Z: 0}, model.Vec3{X: 1, Y: 0, Z: 0}, "vehicle")
	}

	h := NewHarness(root, oracle, network, ids, agents, 1.0/defaultTickRate)
	ticks := uint64(45 * defaultTickRate)
	partitionAt := uint64(20 * defaultTickRate)
	healAt := uint64(30 * defaultTickRate)

	groupA := ids[:3]
	groupB := ids[3:]

	for t := uint64(0); t < ticks; t++ {
		if t == partitionAt {
			for _, a := range groupA {
				for _, b := range groupB {
					network.controller.Partition(a, b)
				}
			}
		}
		if t == healAt {
			for _, a := range groupA {
				for _, b := range groupB {
					network.controller.Heal(a, b)
				}
			}
		}
		h.Tick()
		oracle.Step(1.0 / defaultTickRate)
	}

	target := ids[0]
	canon := make(map[uuid.UUID]int)
	for _, id := range ids {
		a := agents[id]
		if tr, ok := a.Track(target); ok {
			canon[tr.CanonicalID]++
		}
	}
	passed := len(canon) <= 1
	return ScenarioResult{Name: "SplitBrain", Passed: passed, Reason: fmt.Sprintf("%d distinct canonical ids for shared target (want 1)", len(canon))}
}

// SlowLoris is scenario 3: pairwise 50% packet loss for 60s; expects
// observed loss in [0.40, 0.60] and the swarm staying live.
func SlowLoris(seed uint64) ScenarioResult {
	const n = 6
	root, oracle, network, ids, agents := buildSwarm(seed, n, 2, 3, func(i int) agent.Config {
		return agent.DefaultConfig()
	})
	network.controller.defaultLoss = 0.5

	for i := 0; i < n; i++ {
		oracle.Spawn(ids[i], model.Vec3{X: float64(i) * 10, Y: 0, Z: 0}, model.Vec3{X: 1, Y: 0, Z: 0}, "vehicle")
	}

	h := NewHarness(root, oracle, network, ids, agents, 1.0/defaultTickRate)
	ticks := uint64(60 * defaultTickRate)
	for t := uint64(0); t < ticks; t++ {
		h.Tick()
		oracle.Step(1.0 / defaultTickRate)
	}

	dropped, attempted := network.DropStats()
	observed := 0.0
	if attempted > 0 {
		observed = float64(dropped) / float64(attempted)
	}
	alive := countAlive(agents)
	passed := observed >= 0.40 && observed <= 0.60 && alive == n
	return ScenarioResult{Name: "SlowLoris", Passed: passed, Reason: fmt.Sprintf("observed loss %.2f, %d/%d alive", observed, alive, n)}
}

// Byzantine is scenario 4: a subset of agents inject garbage packets
// every gossip round; expects good agents to keep low RMS and to flag
// a meaningful fraction of bad neighbors as unreliable.
func Byzantine(seed uint64) ScenarioResult {
	const n = 50
	root, oracle, network, ids, agents := buildSwarm(seed, n, 5, 10, func(i int) agent.Config {
		return agent.DefaultConfig()
	})

	for i := 0; i < n; i++ {
		oracle.Spawn(ids[i], model.Vec3{X: float64(i) * 5, Y: 0, Z: 0}, model.Vec3{X: 1, Y: 0, Z: 0}, "vehicle")
	}

	badCount := n / 2
	bad := make(map[uuid.UUID]bool, badCount)
	badKeys := make(map[uuid.UUID]trust.KeyPair, badCount)
	keys := NewKeyProvider(seed)
	for i := 0; i < badCount; i++ {
		bad[ids[i]] = true
		pub, priv := keys.KeyFor(uint64(i))
		badKeys[ids[i]] = trust.KeyPair{Public: pub, Private: priv}
	}

	entropy := clock.NewSeededEntropy(seed ^ 0xBAD)
	h := NewHarness(root, oracle, network, ids, agents, 1.0/defaultTickRate)
	ticks := uint64(60 * defaultTickRate)

	for t := uint64(0); t < ticks; t++ {
		h.Tick()
		oracle.Step(1.0 / defaultTickRate)

		for _, id := range ids {
			if !bad[id] {
				continue
			}
			interval := uint64(agents[id].Params().GossipIntervalTicks)
			if interval < 1 {
				interval = 1
			}
			if (t+1)%interval != 0 {
				continue
			}
			kp := badKeys[id]
			for _, neighbor := range network.Neighbors(id) {
				for g := 0; g < 10; g++ {
					garbage := model.ObservationPacket{
						LocalID:  deterministicAgentID(seed, entropy.Uint64()),
						Position: model.Vec3{X: entropy.Float64() * 1000, Y: entropy.Float64() * 1000, Z: 0},
					}
					env := trust.Sign(model.EncodePacket(garbage), kp, &model.EnvelopeMetadata{
						AgentID:     id.String(),
						TimestampMs: uint64(root.Now().UnixMilli()),
						PacketType:  "observation",
					})
					network.Send(id, neighbor, agent.Outbound{Envelope: env, To: neighbor})
				}
			}
		}
	}

	var goodSumSq float64
	var goodCount int
	var pairs, detected int
	for _, id := range ids {
		if bad[id] {
			continue
		}
		a := agents[id]
		if tr, ok := a.Track(id); ok {
			e := oracle.PositionError(id, tr.Position())
			goodSumSq += e * e
			goodCount++
		}

		for _, neighbor := range network.Neighbors(id) {
			if !bad[neighbor] {
				continue
			}
			pairs++
			if unreliable, known := a.ReputationOf(neighbor); known && unreliable {
				detected++
			}
		}
	}
	rms := math.Inf(1)
	if goodCount > 0 {
		rms = math.Sqrt(goodSumSq / float64(goodCount))
	}

	detectionRate := 0.0
	if pairs > 0 {
		detectionRate = float64(detected) / float64(pairs)
	}

	passed := rms < 10.0 && detectionRate >= 0.2
	return ScenarioResult{Name: "Byzantine", Passed: passed, Reason: fmt.Sprintf(
		"good-agent RMS %.2f m %s 10 m, bad-neighbor detection rate %.0f%% %s 20%%",
		rms, cmpWord(rms < 10.0), detectionRate*100, cmpWord(detectionRate < 0.2))}
}

// BlindLearning is scenario 5: fifty agents using blind fitness under
// 20% loss; expects final RMS below the RMS measured at t=2s and below
// 10m.
func BlindLearning(seed uint64) ScenarioResult {
	const n = 50
	root, oracle, network, ids, agents := buildSwarm(seed, n, 5, 10, func(i int) agent.Config {
		cfg := agent.DefaultConfig()
		cfg.FitnessProvider = evolution.NewBlindProvider()
		return cfg
	})
	network.controller.defaultLoss = 0.2

	for i := 0; i < n; i++ {
		oracle.Spawn(ids[i], model.Vec3{X: float64(i) * 5, Y: 0, Z: 0}, model.Vec3{X: 1, Y: 0, Z: 0}, "vehicle")
	}

	h := NewHarness(root, oracle, network, ids, agents, 1.0/defaultTickRate)
	var initialRMS float64
	ticks := uint64(45 * defaultTickRate)
	measureAt := uint64(2 * defaultTickRate)

	for t := uint64(0); t < ticks; t++ {
		h.Tick()
		oracle.Step(1.0 / defaultTickRate)
		if t == measureAt {
			initialRMS = rmsPositionError(oracle, agents, ids)
		}
	}

	finalRMS := rmsPositionError(oracle, agents, ids)
	passed := finalRMS < initialRMS && finalRMS < 10.0
	return ScenarioResult{Name: "BlindLearning", Passed: passed, Reason: fmt.Sprintf("RMS %.2f -> %.2f m", initialRMS, finalRMS)}
}

// LongHaul is scenario 6: ten energy-constrained agents over 200
// ticks; expects most to survive with low RMS and an evolved gossip
// interval above the initial value.
func LongHaul(seed uint64) ScenarioResult {
	const n = 10
	initialInterval := agent.DefaultConfig().InitialParams.GossipIntervalTicks

	root, oracle, network, ids, agents := buildSwarm(seed, n, 2, 5, func(i int) agent.Config {
		cfg := agent.DefaultConfig()
		cfg.StartingEnergy = 150
		cfg.EnergyCostPerByte = 1.0 / 241 // ~1 J per packet: a signed envelope with metadata encodes to 241 bytes
		cfg.IdleEnergyCostPerTick = 0.01
		return cfg
	})

	for i := 0; i < n; i++ {
		oracle.Spawn(ids[i], model.Vec3{X: float64(i) * 10, Y: 0, Z: 0}, model.Vec3{X: 1, Y: 0, Z: 0}, "vehicle")
	}

	h := NewHarness(root, oracle, network, ids, agents, 1.0/defaultTickRate)
	for t := 0; t < 200; t++ {
		h.Tick()
		oracle.Step(1.0 / defaultTickRate)
	}

	alive := countAlive(agents)
	var sumSq float64
	var count int
	var sumInterval int
	for _, id := range ids {
		a := agents[id]
		sumInterval += a.Params().GossipIntervalTicks
		if !a.Alive() {
			continue
		}
		if tr, ok := a.Track(id); ok {
			e := oracle.PositionError(id, tr.Position())
			sumSq += e * e
			count++
		}
	}
	rms := 0.0
	if count > 0 {
		rms = math.Sqrt(sumSq / float64(count))
	}
	avgInterval := float64(sumInterval) / float64(n)

	passed := alive >= (n*8)/10 && rms < 5.0 && avgInterval > float64(initialInterval)
	return ScenarioResult{
		Name:   "LongHaul",
		Passed: passed,
		Reason: fmt.Sprintf("%d/%d survived, RMS %.2f m, avg interval %.1f (initial %d)", alive, n, rms, avgInterval, initialInterval),
	}
}

// AdHoc runs a generic single-line swarm of n agents for
// durationSeconds, outside the six fixed named scenarios — this is
// what the CLI's free-form --agents/--duration flags drive. Agents lay
// out along the X axis, each sensing its own entity directly, with no
// injected faults.
func AdHoc(seed uint64, n int, durationSeconds float64) ScenarioResult {
	if n < 1 {
		n = 1
	}
	cols := n
	rows := 1
	root, oracle, network, ids, agents := buildSwarm(seed, n, rows, cols, func(i int) agent.Config {
		return agent.DefaultConfig()
	})

	for i := 0; i < n; i++ {
		oracle.Spawn(ids[i], model.Vec3{X: float64(i) * 10, Y: 0, Z: 0}, model.Vec3{X: 1, Y: 0, Z: 0}, "vehicle")
	}

	h := NewHarness(root, oracle, network, ids, agents, 1.0/defaultTickRate)
	ticks := uint64(durationSeconds * defaultTickRate)
	for t := uint64(0); t < ticks; t++ {
		h.Tick()
		oracle.Step(1.0 / defaultTickRate)
	}

	rms := rmsPositionError(oracle, agents, ids)
	passed := rms < 5.0
	return ScenarioResult{Name: "AdHoc", Passed: passed, Reason: fmt.Sprintf("RMS %.2f m %s 5 m over %d agents, %.0f s", rms, cmpWord(passed), n, durationSeconds)}
}

// All maps every named scenario's CLI name to its function, used by the
// "--scenario all" CLI mode. Map iteration order is not fixed.
var All = map[string]Scenario{
	"timewarp":      TimeWarp,
	"splitbrain":    SplitBrain,
	"slowloris":     SlowLoris,
	"byzantine":     Byzantine,
	"blindlearning": BlindLearning,
	"longhaul":      LongHaul,
}

func cmpWord(passed bool) string {
	if passed {
		return "<"
	}
	return ">="
}
