// Package journal records which plans were applied to which targets, so
// a rerun can detect prior application instead of guessing from buffer
// contents.
package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the Entry format changes.
const schemaVersion uint16 = 1

// Journal is a small msgpack store under the user cache directory.
// Thread-safe for concurrent access.
type Journal struct {
	mu  sync.RWMutex
	dir string
}

// Entry records one successful plan application against one target.
type Entry struct {
	Schema uint16

	PlanName   string
	TargetPath string
	PatchIDs   []string

	// Content hashes before and after the rewrite. A target whose current
	// hash equals PostHash is already patched.
	PreHash  [32]byte
	PostHash [32]byte

	AppliedAt int64 // unix seconds
}

// Open initializes a journal at the standard cache location.
func Open(app string) (*Journal, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Journal{dir: dir}, nil
}

// OpenAt initializes a journal at an explicit directory.
func OpenAt(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Journal{dir: dir}, nil
}

// Key derives the journal key for one plan/target pair.
func Key(planDigest [32]byte, targetPath string) [32]byte {
	h := sha256.New()
	h.Write(planDigest[:])
	h.Write([]byte{0})
	h.Write([]byte(targetPath))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (j *Journal) pathFor(key [32]byte) string {
	hexKey := hex.EncodeToString(key[:])
	// Subdirectory "runs" keeps the cache dir inspectable.
	return filepath.Join(j.dir, "runs", hexKey+".mp")
}

// Put serializes and writes an entry, temp-file first, then an atomic
// rename into place.
func (j *Journal) Put(key [32]byte, entry *Entry) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entry.Schema = schemaVersion

	p := j.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(entry); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads an entry. A missing file or a schema mismatch is a miss,
// not an error.
func (j *Journal) Get(key [32]byte, out *Entry) (bool, error) {
	if j == nil {
		return false, nil
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	p := j.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()

	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, err
	}
	if out.Schema != schemaVersion {
		return false, nil
	}
	return true, nil
}

