package tracking

import "github.com/banshee-data/godview/internal/spaceengine"

// DefaultGatingChiSquare is the χ² threshold for 3 degrees of freedom
// at ≈95% confidence.
const DefaultGatingChiSquare = 7.815

// Config tunes a tracking Engine.
type Config struct {
	// GatingChiSquare bounds the squared Mahalanobis distance a
	// candidate must stay under to be considered for assignment.
	GatingChiSquare float64

	// StalenessTickBudget is the number of ticks a track may go
	// without an update before it is dropped.
	StalenessTickBudget int

	// SpaceResolution is the surface-cell resolution backing spatial
	// pruning.
	SpaceResolution int

	// PositionVariance and VelocityVariance seed the diagonal
	// measurement covariance R used for gating and fusion when a
	// packet does not carry its own uncertainty.
	PositionVariance float64
	VelocityVariance float64

	// InitialTrackVariance seeds a freshly created track's diagonal
	// covariance.
	InitialTrackVariance float64
}

// DefaultConfig returns the spec's default tuning (§4.4).
func DefaultConfig() Config {
	return Config{
		GatingChiSquare:      DefaultGatingChiSquare,
		StalenessTickBudget:  50,
		SpaceResolution:      spaceengine.DefaultResolution,
		PositionVariance:     4.0,
		VelocityVariance:     1.0,
		InitialTrackVariance: 10.0,
	}
}
