package trust

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	iofs "io/fs"
	"sync"

	"github.com/banshee-data/godview/internal/fsutil"
)

// RevocationList is a persisted set of revoked Ed25519 public keys. It
// is safe for concurrent use. Persistence follows the write-new-then-
// rename pattern: a revoke writes the full set to a temp file and
// renames it over the target path, so a crash mid-write never leaves a
// torn file behind.
type RevocationList struct {
	mu      sync.RWMutex
	revoked map[[32]byte]struct{}
	fs      fsutil.FileSystem
	path    string
}

// NewRevocationList constructs an empty, in-memory-only revocation
// list — no path is associated, so Revoke does not persist.
func NewRevocationList() *RevocationList {
	return &RevocationList{revoked: make(map[[32]byte]struct{})}
}

// LoadRevocationList reads path through fs and returns the populated
// list, bound to fs/path so future Revoke calls persist. A missing
// file is treated as an empty list.
func LoadRevocationList(fs fsutil.FileSystem, path string) (*RevocationList, error) {
	rl := &RevocationList{
		revoked: make(map[[32]byte]struct{}),
		fs:      fs,
		path:    path,
	}

	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return rl, nil
		}
		return nil, fmt.Errorf("trust: opening revocation list %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		key, err := decodeKeyLine(line)
		if err != nil {
			return nil, fmt.Errorf("trust: parsing revocation list %q: %w", path, err)
		}
		rl.revoked[key] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trust: reading revocation list %q: %w", path, err)
	}

	return rl, nil
}

// IsRevoked reports whether pub has been revoked.
func (rl *RevocationList) IsRevoked(pub [32]byte) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	_, ok := rl.revoked[pub]
	return ok
}

// Revoke adds pub to the set and, if the list was loaded with a
// backing path, persists the full set atomically.
func (rl *RevocationList) Revoke(pub [32]byte) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.revoked[pub] = struct{}{}

	if rl.fs == nil || rl.path == "" {
		return nil
	}
	return rl.persistLocked()
}

// Len returns the number of revoked keys.
func (rl *RevocationList) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.revoked)
}

func (rl *RevocationList) persistLocked() error {
	tmpPath := rl.path + ".tmp"

	w, err := rl.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("trust: creating temp revocation list %q: %w", tmpPath, err)
	}

	for key := range rl.revoked {
		if _, err := fmt.Fprintln(w, base64.StdEncoding.EncodeToString(key[:])); err != nil {
			w.Close()
			return fmt.Errorf("trust: writing temp revocation list %q: %w", tmpPath, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("trust: closing temp revocation list %q: %w", tmpPath, err)
	}

	if err := rl.fs.Rename(tmpPath, rl.path); err != nil {
		return fmt.Errorf("trust: renaming %q to %q: %w", tmpPath, rl.path, err)
	}
	return nil
}

func decodeKeyLine(line []byte) ([32]byte, error) {
	var key [32]byte
	// Decode needs room for a full quantum before padding is accounted
	// for, so it can write past len(key) if handed key[:] directly.
	buf := make([]byte, base64.StdEncoding.DecodedLen(len(line)))
	n, err := base64.StdEncoding.Decode(buf, line)
	if err != nil {
		return key, err
	}
	if n != 32 {
		return key, fmt.Errorf("expected 32 bytes, got %d", n)
	}
	copy(key[:], buf[:n])
	return key, nil
}
