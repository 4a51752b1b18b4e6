package tracking

import "errors"

// ErrMalformedPacket is returned for a packet rejected before any
// state change.
var ErrMalformedPacket = errors.New("tracking: malformed packet")
