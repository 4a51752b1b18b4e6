package model

import "github.com/google/uuid"

// StateDim is the dimensionality of a track's kinematic state: position
// and velocity in three axes.
const StateDim = 6

// Track is a fused belief about one real-world object.
//
// Invariants maintained by the tracking engine, not by this type:
// covariance is symmetric PSD; CanonicalID is the numeric minimum of
// every identifier that has ever merged into this track
// ("lowest wins"); ObservedIDs is the union of every source identifier
// that has merged in.
type Track struct {
	CanonicalID uuid.UUID
	State       [StateDim]float64    // (px, py, pz, vx, vy, vz)
	Covariance  [StateDim][StateDim]float64
	ObservedIDs map[uuid.UUID]struct{}
	ShardCell   CellIndex
	Age         int // ticks since creation
	Staleness   int // ticks since last update
	ClassVotes  map[uint32]int
}

// NewTrack creates a track seeded from a single observation's state and
// an initial high-uncertainty covariance, with CanonicalID equal to the
// packet's own local identifier.
func NewTrack(id uuid.UUID, state [StateDim]float64, initialVariance float64, cell CellIndex) *Track {
	var cov [StateDim][StateDim]float64
	for i := 0; i < StateDim; i++ {
		cov[i][i] = initialVariance
	}
	return &Track{
		CanonicalID: id,
		State:       state,
		Covariance:  cov,
		ObservedIDs: map[uuid.UUID]struct{}{id: {}},
		ShardCell:   cell,
		ClassVotes:  map[uint32]int{},
	}
}

// Position returns the track's position vector.
func (t *Track) Position() Vec3 { return Vec3{t.State[0], t.State[1], t.State[2]} }

// Velocity returns the track's velocity vector.
func (t *Track) Velocity() Vec3 { return Vec3{t.State[3], t.State[4], t.State[5]} }

// DominantClass returns the class id with the most votes, and whether
// any vote has ever been recorded. Ties favor the numerically smaller
// class id, matching the deterministic tie-break style used throughout
// the tracking engine ("lowest wins").
func (t *Track) DominantClass() (classID uint32, ok bool) {
	best := -1
	for id, count := range t.ClassVotes {
		if count > best || (count == best && id < classID) {
			best = count
			classID = id
			ok = true
		}
	}
	return classID, ok
}

// RecordClassVote tallies one observation of classID for this track.
func (t *Track) RecordClassVote(classID uint32) {
	t.ClassVotes[classID]++
}

// MergeObservedIDs unions src into t's observed-id set. The caller is
// responsible for choosing the surviving CanonicalID (min of the two).
func (t *Track) MergeObservedIDs(src map[uuid.UUID]struct{}) {
	for id := range src {
		t.ObservedIDs[id] = struct{}{}
	}
}
