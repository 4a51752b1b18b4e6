package agent

import (
	"github.com/google/uuid"

	"github.com/banshee-data/godview/internal/adaptive"
	"github.com/banshee-data/godview/internal/clock"
	"github.com/banshee-data/godview/internal/evolution"
	"github.com/banshee-data/godview/internal/model"
	"github.com/banshee-data/godview/internal/monitoring"
	"github.com/banshee-data/godview/internal/timeengine"
	"github.com/banshee-data/godview/internal/tracking"
	"github.com/banshee-data/godview/internal/trust"
)

// Agent runs one node's full pipeline. It holds no channels and
// spawns no goroutines: the simulation harness (or a production async
// runtime) drives it with one Tick call per scheduling step, matching
// the single-threaded, cooperative scheduling model.
type Agent struct {
	ID       uuid.UUID
	cfg      Config
	provider clock.Provider
	keys     trust.KeyPair
	trustLayer *trust.Layer

	timeEngine   *timeengine.Filter
	hasTimeState bool

	tracker    *tracking.Engine
	reputation *adaptive.ReputationBook
	confidence *adaptive.ConfidenceBook
	optimizer  *evolution.Optimizer

	energy  float64
	alive   bool
	tick    uint64
	elapsedSeconds float64

	recent  []model.ObservationPacket
	forward []model.Envelope // accepted gossip envelopes pending relay

	epoch epochAccumulator
}

// New constructs an Agent identified by id, using revoked as the
// shared revocation list (typically one list per simulation, many per
// production deployment).
func New(id uuid.UUID, cfg Config, provider clock.Provider, keys trust.KeyPair, revoked *trust.RevocationList) *Agent {
	layer := trust.NewLayer(revoked).WithTrustHorizon(cfg.TrustHorizon).WithClock(provider.Now)

	reputation := adaptive.NewReputationBook()
	if cfg.EnableQuarantine {
		reputation = reputation.WithQuarantine(cfg.QuarantineTicks)
	}

	return &Agent{
		ID:         id,
		cfg:        cfg,
		provider:   provider,
		keys:       keys,
		trustLayer: layer,
		tracker:    tracking.NewEngine(cfg.Tracking),
		reputation: reputation,
		confidence: adaptive.NewConfidenceBook(cfg.DecayRate),
		optimizer:  evolution.NewOptimizer(cfg.InitialParams, cfg.FitnessProvider, provider),
		energy:     cfg.StartingEnergy,
		alive:      true,
	}
}

// Alive reports whether the agent is still processing ticks.
func (a *Agent) Alive() bool { return a.alive }

// Energy returns the agent's current remaining energy.
func (a *Agent) Energy() float64 { return a.energy }

// Tracks returns a snapshot of the agent's current fused tracks.
func (a *Agent) Tracks() []model.Track { return a.tracker.Tracks() }

// Track looks up a track by any identifier that has ever referred to
// it, resolving through merge redirects.
func (a *Agent) Track(id uuid.UUID) (model.Track, bool) { return a.tracker.Track(id) }

// Params returns the agent's currently active evolutionary parameters.
func (a *Agent) Params() evolution.Params { return a.optimizer.Active() }

// ReputationOf reports whether neighbor is currently classified
// unreliable by this agent's reputation book — !Reliable() rather
// than BadActor() so a neighbor need only have fallen below the
// acceptance threshold, not also cleared the bad-actor sample floor,
// to count as detected.
func (a *Agent) ReputationOf(neighbor uuid.UUID) (unreliable bool, known bool) {
	rep, ok := a.reputation.Get(neighbor)
	if !ok {
		return false, false
	}
	return !rep.Reliable(), true
}

// RecordPositionError feeds one tick's ground-truth position error into
// the current epoch's accumulator. Only the simulation harness's oracle
// can compute this; production agents never call it, which is why the
// Oracle fitness provider degrades gracefully (zero error) rather than
// panicking when it goes unused.
func (a *Agent) RecordPositionError(err float64) {
	a.epoch.recordPositionError(err)
}

// Tick runs one full pipeline step. dtSeconds is the
// elapsed simulated time since the previous tick; neighbors lists every
// agent id this agent is topologically adjacent to this tick.
func (a *Agent) Tick(dtSeconds float64, readings []SensorReading, inbound []Inbound, neighbors []uuid.UUID) TickResult {
	result := TickResult{Alive: a.alive}
	if !a.alive {
		return result
	}

	// Step 1: idle energy cost.
	a.energy -= a.cfg.IdleEnergyCostPerTick
	if a.energy < 0 {
		a.alive = false
		result.Alive = false
		return result
	}

	a.tick++
	a.elapsedSeconds += dtSeconds
	tNow := a.elapsedSeconds

	// Step 2: time-engine predict.
	if a.hasTimeState {
		a.timeEngine.Predict(dtSeconds, tNow)
	}

	// Step 3: age tracks, decay confidence.
	dropped := a.tracker.Tick()
	result.Dropped = dropped
	for _, id := range dropped {
		a.confidence.Forget(id)
	}
	a.confidence.Decay(tNow)

	// Step 4: ingest local sensor readings.
	for _, r := range readings {
		a.ingestLocal(r, tNow)
	}

	// Step 5: process gossip from neighbors.
	for _, in := range inbound {
		a.ingestGossip(in, tNow, &result)
	}

	// Step 6: gossip emission.
	if a.optimizer.ShouldBroadcast(a.tick, a.energy) {
		result.Outbound = a.emit(neighbors)
		a.recent = nil
		a.forward = nil
	}

	// Step 7: evolutionary step at epoch boundary.
	if a.cfg.EpochLengthTicks > 0 && a.tick%a.cfg.EpochLengthTicks == 0 {
		m := a.epoch.metrics(a.cfg.EpochLengthTicks, a.cfg.StartingEnergy, a.energy, a.timeEngine)
		result.EpochFitness = a.optimizer.EndEpoch(m)
		result.EpochFitnessSet = true
		a.epoch = epochAccumulator{}
	}

	result.Alive = a.alive
	return result
}

func (a *Agent) ingestLocal(r SensorReading, tNow float64) {
	a.energy -= a.cfg.EnergyCostPerReading

	biased := model.Vec3{
		X: r.Position.X - a.optimizer.Active().SensorBiasMeters,
		Y: r.Position.Y - a.optimizer.Active().SensorBiasMeters,
		Z: r.Position.Z,
	}

	if !a.hasTimeState {
		a.timeEngine = timeengine.New(a.cfg.TimeEngine, []float64{
			biased.X, biased.Y, biased.Z, r.Velocity.X, r.Velocity.Y, r.Velocity.Z,
		}, tNow)
		a.hasTimeState = true
	}

	var rCov [3][3]float64
	for i := 0; i < 3; i++ {
		rCov[i][i] = a.cfg.SensorNoiseVariance
	}
	if err := a.timeEngine.UpdateOOSM([3]float64{biased.X, biased.Y, biased.Z}, rCov, tNow); err != nil {
		monitoring.Warnf("agent %s: local OOSM update failed: %v", a.ID, err)
	}

	block := a.timeEngine.CurrentBlock()
	packet := model.ObservationPacket{
		LocalID:    r.LocalID,
		Position:   model.Vec3{X: block[0], Y: block[1], Z: block[2]},
		Velocity:   model.Vec3{X: block[3], Y: block[4], Z: block[5]},
		ClassID:    r.ClassID,
		TimestampS: tNow,
		Confidence: r.Confidence,
	}

	res, err := a.tracker.Ingest(packet, tracking.SourceLocal, nil)
	if err != nil {
		monitoring.Warnf("agent %s: local ingest rejected: %v", a.ID, err)
		return
	}
	a.confidence.RecordDirectObservation(res.TrackID, tNow)
	a.recent = append(a.recent, packet)
}

func (a *Agent) ingestGossip(in Inbound, tNow float64, result *TickResult) {
	if err := a.trustLayer.VerifyLogged(in.Envelope); err != nil {
		result.PacketsRejected++
		return
	}

	if !a.reputation.AcceptAt(in.From, a.tick) {
		result.PacketsFiltered++
		return
	}

	packet, err := model.DecodePacket(in.Envelope.Payload)
	if err != nil {
		monitoring.Warnf("agent %s: malformed gossip payload from %s: %v", a.ID, in.From, err)
		result.PacketsRejected++
		return
	}

	res, err := a.tracker.Ingest(packet, tracking.SourceGossip, &in.From)
	if err != nil {
		a.reputation.RecordAt(in.From, adaptive.OutcomeWrong, a.tick)
		return
	}

	outcome := a.classifyOutcome(res, in.From, tNow)
	a.reputation.RecordAt(in.From, outcome, a.tick)
	a.epoch.recordPeerOutcome(outcome)

	if a.cfg.EnableRelay {
		relayed := in.Envelope.WithIncrementedHop()
		if relayed.Hops <= a.cfg.MaxHops {
			a.forward = append(a.forward, relayed)
		}
	}
}

// classifyOutcome maps a tracking outcome onto the adaptive layer's
// useful/redundant/wrong taxonomy. A fused update to an already
// high-confidence track is redundant since it added no new
// information; a packet the tracker itself could not ingest is wrong
// outright. A new track is usually useful, but two signals catch the
// case the tracking engine's gating can't rule out by itself: a
// "new" track contesting a cell that already held candidates it
// failed to gate against (Contested) is the spatial signature of a
// contradiction, and a packet from a neighbor already classified a
// bad actor is never given the benefit of the doubt regardless of
// what it claims.
func (a *Agent) classifyOutcome(res tracking.IngestResult, from uuid.UUID, tNow float64) adaptive.Outcome {
	if rep, ok := a.reputation.Get(from); ok && rep.BadActor() {
		return adaptive.OutcomeWrong
	}

	switch res.Outcome {
	case tracking.OutcomeNewTrack:
		if res.Contested {
			return adaptive.OutcomeWrong
		}
		a.confidence.RecordDirectObservation(res.TrackID, tNow)
		return adaptive.OutcomeUseful
	case tracking.OutcomeFused:
		conf, ok := a.confidence.Get(res.TrackID)
		if ok && conf.Value >= a.optimizer.Active().ConfidenceThreshold {
			a.confidence.RecordCorroboration(res.TrackID, tNow)
			return adaptive.OutcomeRedundant
		}
		a.confidence.RecordDirectObservation(res.TrackID, tNow)
		return adaptive.OutcomeUseful
	default:
		return adaptive.OutcomeWrong
	}
}

func (a *Agent) emit(neighbors []uuid.UUID) []Outbound {
	if len(a.recent) == 0 && len(a.forward) == 0 || len(neighbors) == 0 {
		return nil
	}

	selected := selectNeighbors(neighbors, a.optimizer.Active().MaxGossipNeighbors, a.provider)

	var out []Outbound
	for _, n := range selected {
		for _, p := range a.recent {
			wire := model.EncodePacket(p)
			env := trust.Sign(wire, a.keys, &model.EnvelopeMetadata{
				AgentID:     a.ID.String(),
				TimestampMs: uint64(a.provider.Now().UnixMilli()),
				PacketType:  "observation",
			})
			a.energy -= float64(len(model.EncodeEnvelope(env))) * a.cfg.EnergyCostPerByte
			a.epoch.bytesSent += float64(len(model.EncodeEnvelope(env)))
			out = append(out, Outbound{Envelope: env, To: n})
		}
		for _, env := range a.forward {
			a.energy -= float64(len(model.EncodeEnvelope(env))) * a.cfg.EnergyCostPerByte
			a.epoch.bytesSent += float64(len(model.EncodeEnvelope(env)))
			out = append(out, Outbound{Envelope: env, To: n})
		}
	}
	return out
}

// selectNeighbors deterministically samples up to max ids from
// neighbors using entropy drawn from the agent's provider, so the same
// seed always picks the same gossip targets.
func selectNeighbors(neighbors []uuid.UUID, max int, entropy clock.Entropy) []uuid.UUID {
	if max <= 0 || max >= len(neighbors) {
		out := make([]uuid.UUID, len(neighbors))
		copy(out, neighbors)
		return out
	}

	pool := make([]uuid.UUID, len(neighbors))
	copy(pool, neighbors)
	for i := len(pool) - 1; i > 0; i-- {
		j := entropy.Intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:max]
}
