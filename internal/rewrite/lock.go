package rewrite

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrLocked is returned when another rewrite holds the target's lock.
var ErrLocked = errors.New("target file is locked by another rewrite")

// acquireLock takes a scoped lock for the read-modify-write cycle of one
// target. The lock is a sibling file created with O_EXCL; the returned
// release func removes it and must run on every exit path.
func acquireLock(target string) (release func(), err error) {
	lockPath := target + ".stitch.lock"
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: remove stale %s if no rewrite is running", ErrLocked, lockPath)
		}
		return nil, err
	}

	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if err := f.Close(); err != nil {
		_ = os.Remove(lockPath)
		return nil, err
	}

	return func() {
		_ = os.Remove(lockPath)
	}, nil
}
