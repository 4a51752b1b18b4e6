package timeengine

import "errors"

var (
	// ErrStaleMeasurement is returned when an OOSM update's timestamp
	// precedes the oldest retained history slot.
	ErrStaleMeasurement = errors.New("timeengine: measurement precedes retained history")

	// ErrCovarianceDegraded is returned when the innovation covariance
	// fails Cholesky factorization; the filter self-heals before
	// returning this error.
	ErrCovarianceDegraded = errors.New("timeengine: covariance factorization failed")
)
