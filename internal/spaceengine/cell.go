package spaceengine

import (
	"math"

	"github.com/banshee-data/godview/internal/model"
)

// CellIndex is an alias for model.CellIndex so package spaceengine,
// which owns the indexing scheme, can still refer to it by its own
// name.
type CellIndex = model.CellIndex

// EarthRadiusMeters is used for the equirectangular plane projection.
const EarthRadiusMeters = 6371000.0

// DefaultResolution is the surface-cell resolution whose edge length
// matches the legacy fixed 66 m assumption.
const DefaultResolution = 9

// CellEdgeMeters returns the approximate edge length of a hexagonal
// surface cell at the given resolution. Each resolution
// step scales the edge by sqrt(7), mirroring H3's per-resolution area
// ratio, normalized so DefaultResolution reproduces the legacy edge.
func CellEdgeMeters(resolution int) float64 {
	const res9EdgeMeters = 66.0
	steps := float64(DefaultResolution - resolution)
	return res9EdgeMeters * math.Pow(math.Sqrt(7), steps)
}

// latLonToPlane projects a geographic coordinate onto a local
// equirectangular meter plane. Distortion grows with distance from
// the projection's implicit reference latitude, which is acceptable
// because callers only ever compare points that are already close
// together (same or neighboring surface cells).
func latLonToPlane(lat, lon float64) (x, y float64) {
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	y = latRad * EarthRadiusMeters
	x = lonRad * EarthRadiusMeters * math.Cos(latRad)
	return x, y
}

// axial is a cube/axial hex coordinate (flat-top orientation).
type axial struct {
	q, r int32
}

// worldToAxial buckets a plane coordinate into the hex cell of the
// given edge length that contains it.
func worldToAxial(x, y, edge float64) axial {
	qf := (2.0 / 3.0 * x) / edge
	rf := (-1.0/3.0*x + math.Sqrt(3)/3.0*y) / edge
	return axialRound(qf, rf)
}

// axialRound snaps fractional cube coordinates to the nearest hex,
// correcting whichever cube component strayed furthest from its
// rounded value so q+r+s stays zero.
func axialRound(qf, rf float64) axial {
	xf := qf
	zf := rf
	yf := -xf - zf

	rx := math.Round(xf)
	ry := math.Round(yf)
	rz := math.Round(zf)

	dx := math.Abs(rx - xf)
	dy := math.Abs(ry - yf)
	dz := math.Abs(rz - zf)

	switch {
	case dx > dy && dx > dz:
		rx = -ry - rz
	case dy > dz:
		ry = -rx - rz
	default:
		rz = -rx - ry
	}

	return axial{q: int32(rx), r: int32(rz)}
}

// axialToPixel returns the plane-space centroid of a hex cell.
func axialToPixel(a axial, edge float64) (x, y float64) {
	x = edge * (1.5 * float64(a.q))
	y = edge * (math.Sqrt(3)/2*float64(a.q) + math.Sqrt(3)*float64(a.r))
	return x, y
}

func zigzag(n int32) uint64 {
	return uint64(uint32((n << 1) ^ (n >> 31)))
}

func unzigzag(z uint64) int32 {
	u := uint32(z)
	return int32(u>>1) ^ -int32(u&1)
}

const (
	axialBits = 28
	axialMask = (1 << axialBits) - 1
)

// cellIndexFromAxial packs a resolution and an axial coordinate into
// a single opaque CellIndex handle.
func cellIndexFromAxial(a axial, resolution int) CellIndex {
	zq := zigzag(a.q) & axialMask
	zr := zigzag(a.r) & axialMask
	res := uint64(resolution) & 0xFF
	return CellIndex(res<<56 | zq<<axialBits | zr)
}

func decodeAxial(cell CellIndex) axial {
	v := uint64(cell)
	zq := (v >> axialBits) & axialMask
	zr := v & axialMask
	return axial{q: unzigzag(zq), r: unzigzag(zr)}
}

func resolutionOf(cell CellIndex) int {
	return int(uint64(cell) >> 56)
}

// CellFromLatLon computes the surface cell containing (lat, lon) at
// the given resolution.
func CellFromLatLon(lat, lon float64, resolution int) CellIndex {
	x, y := latLonToPlane(lat, lon)
	return CellFromLocal(x, y, resolution)
}

// CellFromLocal computes the surface cell containing a plane
// coordinate (x, y) already expressed in local meters, skipping the
// lat/lon projection step — the entry point for callers that only
// ever work in a shared local frame (e.g. the tracking engine, whose
// wire packets carry meter positions directly).
func CellFromLocal(x, y float64, resolution int) CellIndex {
	edge := CellEdgeMeters(resolution)
	a := worldToAxial(x, y, edge)
	return cellIndexFromAxial(a, resolution)
}

// localCoords converts a geographic coordinate to cell-local meters
// about cell's centroid, using an equirectangular projection valid
// because each cell is small.
func localCoords(lat, lon, alt float64, cell CellIndex) (x, y, z float64) {
	px, py := latLonToPlane(lat, lon)
	return localCoordsFromPlane(px, py, alt, cell)
}

// localCoordsFromPlane re-centers a plane coordinate already in local
// meters about cell's centroid.
func localCoordsFromPlane(x, y, z float64, cell CellIndex) (lx, ly, lz float64) {
	edge := CellEdgeMeters(resolutionOf(cell))
	centroid := decodeAxial(cell)
	cx, cy := axialToPixel(centroid, edge)
	return x - cx, y - cy, z
}

// ringCells enumerates every cell within hex-distance k of center.
func ringCells(center axial, resolution, k int) []CellIndex {
	out := make([]CellIndex, 0, 3*k*(k+1)+1)
	for dq := -k; dq <= k; dq++ {
		loR := -k
		if -dq-k > loR {
			loR = -dq - k
		}
		hiR := k
		if -dq+k < hiR {
			hiR = -dq + k
		}
		for dr := loR; dr <= hiR; dr++ {
			a := axial{q: center.q + int32(dq), r: center.r + int32(dr)}
			out = append(out, cellIndexFromAxial(a, resolution))
		}
	}
	return out
}
