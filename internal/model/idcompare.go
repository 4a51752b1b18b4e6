package model

import (
	"bytes"

	"github.com/google/uuid"
)

// Less reports whether a's 128-bit value is numerically smaller than
// b's. UUID textual comparison and byte comparison agree (both ids
// share the same hyphen layout), but comparing the raw bytes is the
// unambiguous definition "lowest wins" merges rely on.
func Less(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
