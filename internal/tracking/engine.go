// Package tracking implements the data-association, merge, and fusion
// pipeline : spatial pruning, Mahalanobis gating, global
// nearest-neighbor assignment, deterministic "lowest wins" identity
// merge, and covariance-intersection state fusion.
package tracking

import (
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/godview/internal/model"
	"github.com/banshee-data/godview/internal/monitoring"
	"github.com/banshee-data/godview/internal/spaceengine"
)

// Engine converts a stream of observation packets into a stable,
// deduplicated set of tracks. It is safe for concurrent use.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	space *spaceengine.Engine

	tracks      map[uuid.UUID]*model.Track
	redirects   map[uuid.UUID]uuid.UUID
	mergeEvents []MergeEvent
	tick        uint64
}

// NewEngine constructs a tracking Engine backed by its own spatial
// index at cfg.SpaceResolution.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:       cfg,
		space:     spaceengine.NewEngine(cfg.SpaceResolution),
		tracks:    make(map[uuid.UUID]*model.Track),
		redirects: make(map[uuid.UUID]uuid.UUID),
	}
}

// Ingest runs one packet through the four-stage pipeline.
// It never panics and never returns an error that leaves the engine's
// internal state inconsistent: a malformed packet or a degraded
// gating matrix is absorbed and reported, not propagated as a fatal
// condition.
func (e *Engine) Ingest(packet model.ObservationPacket, source SourceKind, neighborID *uuid.UUID) (IngestResult, error) {
	if packet.Confidence < 0 || packet.Confidence > 1 {
		return IngestResult{Outcome: OutcomeRejected}, ErrMalformedPacket
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	localID := e.resolveLocked(packet.LocalID)

	candidates := e.candidatesLocked(packet.Position)
	best, bestTrackID, gated := e.bestAssignmentLocked(candidates, packet)

	if !gated {
		tr := model.NewTrack(localID, packetState(packet), e.cfg.InitialTrackVariance, 0)
		tr.RecordClassVote(packet.ClassID)
		cell, err := e.space.UpsertLocal(localID, packet.Position)
		if err != nil {
			monitoring.Warnf("tracking: spatial insert failed for new track %s: %v", localID, err)
		}
		tr.ShardCell = cell
		e.tracks[localID] = tr
		return IngestResult{TrackID: localID, Outcome: OutcomeNewTrack, Contested: len(candidates) > 0}, nil
	}

	result := IngestResult{TrackID: bestTrackID, Outcome: OutcomeFused}

	if localID != best.CanonicalID {
		ev := e.mergeIdentityLocked(best, localID, "gated-match", packet.Position)
		result.Merge = ev
		result.TrackID = best.CanonicalID
	}

	e.fuseLocked(best, packet)
	best.Staleness = 0

	cell, err := e.space.UpsertLocal(best.CanonicalID, best.Position())
	if err != nil {
		monitoring.Warnf("tracking: spatial update failed for track %s: %v", best.CanonicalID, err)
	} else {
		best.ShardCell = cell
	}

	return result, nil
}

// Tick ages every track by one step, dropping those whose staleness
// exceeds the configured budget.
func (e *Engine) Tick() (dropped []uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick++

	for id, tr := range e.tracks {
		tr.Age++
		tr.Staleness++
		if tr.Staleness > e.cfg.StalenessTickBudget {
			delete(e.tracks, id)
			e.space.Remove(id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Track returns a copy of the track with the given canonical id,
// resolving through any merge redirects.
func (e *Engine) Track(id uuid.UUID) (model.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr, ok := e.tracks[e.resolveLocked(id)]
	if !ok {
		return model.Track{}, false
	}
	return *tr, true
}

// Tracks returns a snapshot of all current tracks.
func (e *Engine) Tracks() []model.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Track, 0, len(e.tracks))
	for _, tr := range e.tracks {
		out = append(out, *tr)
	}
	return out
}

// MergeEvents returns every merge event recorded so far.
func (e *Engine) MergeEvents() []MergeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]MergeEvent, len(e.mergeEvents))
	copy(out, e.mergeEvents)
	return out
}

func (e *Engine) resolveLocked(id uuid.UUID) uuid.UUID {
	for {
		next, ok := e.redirects[id]
		if !ok {
			return id
		}
		id = next
	}
}

// candidatesLocked returns tracks sharing the packet's surface cell
// or its immediate ring.
func (e *Engine) candidatesLocked(pos model.Vec3) []*model.Track {
	cells := e.space.NeighborsLocal(pos)
	cellSet := make(map[spaceengine.CellIndex]struct{}, len(cells))
	for _, c := range cells {
		cellSet[c] = struct{}{}
	}

	var out []*model.Track
	for _, tr := range e.tracks {
		if _, ok := cellSet[tr.ShardCell]; ok {
			out = append(out, tr)
		}
	}
	return out
}

// bestAssignmentLocked gates every candidate by Mahalanobis distance
// and returns the single candidate with minimum distance, ties broken
// by the numerically smaller canonical identifier.
func (e *Engine) bestAssignmentLocked(candidates []*model.Track, packet model.ObservationPacket) (*model.Track, uuid.UUID, bool) {
	z := []float64{packet.Position.X, packet.Position.Y, packet.Position.Z}

	var best *model.Track
	bestDist := e.cfg.GatingChiSquare

	for _, tr := range candidates {
		hx := []float64{tr.State[0], tr.State[1], tr.State[2]}
		s := addDiag(posBlock(tr.Covariance), e.cfg.PositionVariance)

		dist, err := mahalanobisSquared(z, hx, s)
		if err != nil {
			monitoring.Warnf("tracking: singular gating covariance for track %s, skipping", tr.CanonicalID)
			continue
		}
		if dist > e.cfg.GatingChiSquare {
			continue
		}
		if best == nil || dist < bestDist || (dist == bestDist && model.Less(tr.CanonicalID, best.CanonicalID)) {
			best = tr
			bestDist = dist
		}
	}

	if best == nil {
		return nil, uuid.UUID{}, false
	}
	return best, best.CanonicalID, true
}

// mergeIdentityLocked collapses incoming into track's identity using
// "lowest wins".
func (e *Engine) mergeIdentityLocked(track *model.Track, incoming uuid.UUID, reason string, mergePos model.Vec3) *MergeEvent {
	existing := track.CanonicalID
	survivor, loser := existing, incoming
	if model.Less(incoming, existing) {
		survivor, loser = incoming, existing
	}

	if survivor != existing {
		delete(e.tracks, existing)
		track.CanonicalID = survivor
		e.tracks[survivor] = track
	}

	track.ObservedIDs[loser] = struct{}{}
	e.redirects[loser] = survivor

	ev := MergeEvent{
		Winner:        survivor,
		Loser:         loser,
		Reason:        reason,
		MergePosition: mergePos,
		Tick:          e.tick,
	}
	e.mergeEvents = append(e.mergeEvents, ev)
	return &ev
}

// fuseLocked combines track's (x, P) with the packet via covariance
// intersection.
func (e *Engine) fuseLocked(track *model.Track, packet model.ObservationPacket) {
	x := track.State[:]
	z := []float64{
		packet.Position.X, packet.Position.Y, packet.Position.Z,
		packet.Velocity.X, packet.Velocity.Y, packet.Velocity.Z,
	}
	p := make([][]float64, model.StateDim)
	for i := range p {
		p[i] = append([]float64(nil), track.Covariance[i][:]...)
	}
	r := diag6(e.cfg.PositionVariance, e.cfg.VelocityVariance)

	xNew, pNew := covarianceIntersect(x, z, p, r)

	for i := 0; i < model.StateDim; i++ {
		track.State[i] = xNew[i]
		for j := 0; j < model.StateDim; j++ {
			track.Covariance[i][j] = pNew[i][j]
		}
	}
	track.RecordClassVote(packet.ClassID)
	track.MergeObservedIDs(map[uuid.UUID]struct{}{packet.LocalID: {}})
}

func packetState(p model.ObservationPacket) [model.StateDim]float64 {
	return [model.StateDim]float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Velocity.X, p.Velocity.Y, p.Velocity.Z,
	}
}

func posBlock(cov [model.StateDim][model.StateDim]float64) [][]float64 {
	out := make([][]float64, 3)
	for i := 0; i < 3; i++ {
		out[i] = make([]float64, 3)
		for j := 0; j < 3; j++ {
			out[i][j] = cov[i][j]
		}
	}
	return out
}

func addDiag(m [][]float64, v float64) [][]float64 {
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = append([]float64(nil), m[i]...)
		out[i][i] += v
	}
	return out
}

func diag6(posVar, velVar float64) [][]float64 {
	out := make([][]float64, model.StateDim)
	for i := range out {
		out[i] = make([]float64, model.StateDim)
	}
	for i := 0; i < 3; i++ {
		out[i][i] = posVar
	}
	for i := 3; i < model.StateDim; i++ {
		out[i][i] = velVar
	}
	return out
}
