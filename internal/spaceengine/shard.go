package spaceengine

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// shard owns one surface cell's spatial index: a sparse octree and a
// mapping from internal element id to entity record.
type shard struct {
	mu             sync.RWMutex
	tree           *octree
	byID           map[uuid.UUID]*shardPoint
	nextInternalID uint32
}

type shardPoint struct {
	internalID uint32
	quant      [3]uint16
	local      [3]float64
}

func newShard() *shard {
	return &shard{tree: newOctree(), byID: make(map[uuid.UUID]*shardPoint)}
}

// upsert inserts id at local coordinates (x, y, z), quantizing and
// replacing any prior position.
func (s *shard) upsert(id uuid.UUID, x, y, z float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := [3]uint16{quantize(x), quantize(y), quantize(z)}

	if existing, ok := s.byID[id]; ok {
		s.tree.remove(existing.internalID, existing.quant)
		if err := s.tree.insert(existing.internalID, q); err != nil {
			return err
		}
		existing.quant = q
		existing.local = [3]float64{x, y, z}
		return nil
	}

	internalID := s.nextInternalID
	if err := s.tree.insert(internalID, q); err != nil {
		return err
	}
	s.nextInternalID++
	s.byID[id] = &shardPoint{internalID: internalID, quant: q, local: [3]float64{x, y, z}}
	return nil
}

func (s *shard) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return
	}
	s.tree.remove(p.internalID, p.quant)
	delete(s.byID, id)
}

func (s *shard) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

type candidate struct {
	id         uuid.UUID
	internalID uint32
	distance   float64
}

// candidatesNear returns (entityID, distance) pairs within radiusMeters
// of the local point (cx, cy, cz), filtered by exact Euclidean
// distance so altitude is honored.
func (s *shard) candidatesNear(cx, cy, cz, radiusMeters float64) []candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	centerQ := [3]int32{int32(quantize(cx)), int32(quantize(cy)), int32(quantize(cz))}
	radiusQ := int32(radiusMeters / (2 * octreeRangeMeters) * 65535)

	var coarse []octreePoint
	s.tree.query(centerQ, radiusQ, &coarse)

	wanted := make(map[uint32]struct{}, len(coarse))
	for _, p := range coarse {
		wanted[p.id] = struct{}{}
	}

	var out []candidate
	for id, p := range s.byID {
		if _, ok := wanted[p.internalID]; !ok {
			continue
		}
		dx := p.local[0] - cx
		dy := p.local[1] - cy
		dz := p.local[2] - cz
		dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
		if dist <= radiusMeters {
			out = append(out, candidate{id: id, internalID: p.internalID, distance: dist})
		}
	}
	return out
}
