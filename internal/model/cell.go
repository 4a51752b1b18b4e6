package model

// CellIndex identifies a discrete surface cell on the globe. It is an opaque integer handle produced by
// the space engine's cell-indexing scheme (an H3-style hexagonal grid);
// model only needs to carry it around as a track's shard membership.
type CellIndex uint64

// InvalidCell is the zero value, used for a track that has not yet been
// assigned a shard.
const InvalidCell CellIndex = 0
