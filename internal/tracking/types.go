package tracking

import (
	"github.com/google/uuid"

	"github.com/banshee-data/godview/internal/model"
)

// SourceKind distinguishes a packet born from a local sensor reading
// from one received over gossip.
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceGossip
)

// Outcome classifies what Ingest did with a packet.
type Outcome int

const (
	OutcomeNewTrack Outcome = iota
	OutcomeFused
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNewTrack:
		return "new_track"
	case OutcomeFused:
		return "fused"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// MergeEvent records a "lowest wins" identity collapse. Engine.MergeEvents
// returns the log; the agent's peer-agreement cost is computed from
// gossip outcomes and does not read these events.
type MergeEvent struct {
	Winner        uuid.UUID
	Loser         uuid.UUID
	Reason        string
	MergePosition model.Vec3
	Tick          uint64
}

// IngestResult reports what a single Ingest call did.
type IngestResult struct {
	TrackID uuid.UUID
	Outcome Outcome
	Merge   *MergeEvent

	// Contested is set on an OutcomeNewTrack result when the packet's
	// cell or its immediate ring already held one or more candidate
	// tracks that it failed to
	// gate against, rather than the cell being empty. A packet claiming
	// a brand-new entity inside territory an existing track already
	// occupies is the operational signature of a contradiction, since
	// the spatial index can't carry per-track confidence itself.
	Contested bool
}
