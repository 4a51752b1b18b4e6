// Package spaceengine implements the hierarchical spatial index: a
// mapping from surface-cell index to shard, each shard
// owning a sparse 3-D octree so radius queries examine only nearby
// entities instead of every track.
package spaceengine

import (
	"math"
	"sort"
	"sync"

	"github.com/banshee-data/godview/internal/model"
	"github.com/banshee-data/godview/internal/monitoring"
	"github.com/google/uuid"
)

// QueryResult is one hit from Engine.Query, ordered by (shard index,
// element id) for determinism.
type QueryResult struct {
	EntityID uuid.UUID
	Distance float64
}

// Engine indexes entities by surface cell at a fixed resolution.
type Engine struct {
	mu           sync.RWMutex
	resolution   int
	shards       map[CellIndex]*shard
	shardIndex   map[CellIndex]int
	nextShardIdx int
	membership   map[uuid.UUID]CellIndex
}

// NewEngine constructs an Engine at the given cell resolution.
func NewEngine(resolution int) *Engine {
	return &Engine{
		resolution: resolution,
		shards:     make(map[CellIndex]*shard),
		shardIndex: make(map[CellIndex]int),
		membership: make(map[uuid.UUID]CellIndex),
	}
}

// Resolution returns the configured cell resolution.
func (e *Engine) Resolution() int { return e.resolution }

// Upsert inserts or updates id's position. An entity is present in
// exactly one shard at a time; cell membership is recomputed from
// geo every call.
func (e *Engine) Upsert(id uuid.UUID, geo model.GeoPosition) (CellIndex, error) {
	cell := CellFromLatLon(geo.Lat, geo.Lon, e.resolution)

	e.mu.Lock()
	prevCell, hadPrev := e.membership[id]
	e.membership[id] = cell
	prevShard := e.shards[prevCell]
	e.mu.Unlock()

	if hadPrev && prevCell != cell && prevShard != nil {
		prevShard.remove(id)
	}

	x, y, z := localCoords(geo.Lat, geo.Lon, geo.Alt, cell)
	s := e.shardFor(cell)
	if err := s.upsert(id, x, y, z); err != nil {
		monitoring.Warnf("spaceengine: dropping insert for %s: %v", id, err)
		return cell, err
	}
	return cell, nil
}

// Remove drops id from its current shard, if any.
func (e *Engine) Remove(id uuid.UUID) {
	e.mu.Lock()
	cell, ok := e.membership[id]
	delete(e.membership, id)
	s := e.shards[cell]
	e.mu.Unlock()

	if ok && s != nil {
		s.remove(id)
	}
}

// Neighbors returns the shard cell and its immediate ring (k=1) for
// the given position — the spatial-pruning candidate set for the
// tracking engine's per-packet pipeline.
func (e *Engine) Neighbors(geo model.GeoPosition) []CellIndex {
	center := decodeAxial(CellFromLatLon(geo.Lat, geo.Lon, e.resolution))
	return ringCells(center, e.resolution, 1)
}

// Query returns every entity within radiusMeters of center, filtered
// by exact Euclidean distance (so altitude is honored) and ordered by
// (shard index, element id) for determinism.
func (e *Engine) Query(center model.GeoPosition, radiusMeters float64) []QueryResult {
	edge := CellEdgeMeters(e.resolution)
	k := int(math.Ceil(radiusMeters / edge))
	if k < 1 {
		k = 1
	}

	centerCell := CellFromLatLon(center.Lat, center.Lon, e.resolution)
	cells := ringCells(decodeAxial(centerCell), e.resolution, k)

	type entry struct {
		idx  int
		cell CellIndex
		s    *shard
	}

	e.mu.RLock()
	entries := make([]entry, 0, len(cells))
	for _, c := range cells {
		if s, ok := e.shards[c]; ok {
			entries = append(entries, entry{idx: e.shardIndex[c], cell: c, s: s})
		}
	}
	e.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	var results []QueryResult
	for _, en := range entries {
		cx, cy, cz := localCoords(center.Lat, center.Lon, center.Alt, en.cell)
		cands := en.s.candidatesNear(cx, cy, cz, radiusMeters)

		sort.Slice(cands, func(i, j int) bool { return cands[i].internalID < cands[j].internalID })
		for _, c := range cands {
			results = append(results, QueryResult{EntityID: c.id, Distance: c.distance})
		}
	}
	return results
}

// UpsertLocal is Upsert for a position already expressed in local
// meters (pos.X, pos.Y as plane coordinates, pos.Z as altitude)
// rather than lat/lon — the entry point the tracking engine uses,
// since observation packets carry meter positions directly.
func (e *Engine) UpsertLocal(id uuid.UUID, pos model.Vec3) (CellIndex, error) {
	cell := CellFromLocal(pos.X, pos.Y, e.resolution)

	e.mu.Lock()
	prevCell, hadPrev := e.membership[id]
	e.membership[id] = cell
	prevShard := e.shards[prevCell]
	e.mu.Unlock()

	if hadPrev && prevCell != cell && prevShard != nil {
		prevShard.remove(id)
	}

	x, y, z := localCoordsFromPlane(pos.X, pos.Y, pos.Z, cell)
	s := e.shardFor(cell)
	if err := s.upsert(id, x, y, z); err != nil {
		monitoring.Warnf("spaceengine: dropping insert for %s: %v", id, err)
		return cell, err
	}
	return cell, nil
}

// NeighborsLocal is Neighbors for a position already in local meters.
func (e *Engine) NeighborsLocal(pos model.Vec3) []CellIndex {
	center := decodeAxial(CellFromLocal(pos.X, pos.Y, e.resolution))
	return ringCells(center, e.resolution, 1)
}

// QueryLocal is Query for a center already in local meters.
func (e *Engine) QueryLocal(center model.Vec3, radiusMeters float64) []QueryResult {
	edge := CellEdgeMeters(e.resolution)
	k := int(math.Ceil(radiusMeters / edge))
	if k < 1 {
		k = 1
	}

	centerCell := CellFromLocal(center.X, center.Y, e.resolution)
	cells := ringCells(decodeAxial(centerCell), e.resolution, k)

	type entry struct {
		idx  int
		cell CellIndex
		s    *shard
	}

	e.mu.RLock()
	entries := make([]entry, 0, len(cells))
	for _, c := range cells {
		if s, ok := e.shards[c]; ok {
			entries = append(entries, entry{idx: e.shardIndex[c], cell: c, s: s})
		}
	}
	e.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	var results []QueryResult
	for _, en := range entries {
		cx, cy, cz := localCoordsFromPlane(center.X, center.Y, center.Z, en.cell)
		cands := en.s.candidatesNear(cx, cy, cz, radiusMeters)

		sort.Slice(cands, func(i, j int) bool { return cands[i].internalID < cands[j].internalID })
		for _, c := range cands {
			results = append(results, QueryResult{EntityID: c.id, Distance: c.distance})
		}
	}
	return results
}

func (e *Engine) shardFor(cell CellIndex) *shard {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.shards[cell]
	if !ok {
		s = newShard()
		e.shards[cell] = s
		e.shardIndex[cell] = e.nextShardIdx
		e.nextShardIdx++
	}
	return s
}
