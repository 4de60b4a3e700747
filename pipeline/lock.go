package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"

	"splicer/models"
)

// OutputLock keeps two runs from writing the same output file.
type OutputLock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file used for output.
func LockPath(output string) string {
	return output + ".lock"
}

// lockAttempts bounds how often LockOutput retries when the lock file is
// replaced under it.
const lockAttempts = 3

// LockOutput takes an exclusive lock on <output>.lock without blocking.
//
// A holder removes the lock file before releasing it, so a lock won on a file
// that is no longer at the path is stale and is retried on a fresh file.
func LockOutput(output string) (*OutputLock, error) {
	path := LockPath(output)

	for range lockAttempts {
		l := flock.New(path)
		ok, err := l.TryLock()
		if err != nil {
			return nil, models.NewStageError(string(StageInit), output, models.ErrInvalidParameter,
				fmt.Errorf("acquire lock: %w", err))
		}
		if !ok {
			return nil, models.NewStageError(string(StageInit), output, models.ErrInvalidParameter,
				fmt.Errorf("output is in use by another run (%s)", path))
		}
		if holds(l, path) {
			return &OutputLock{path: path, lock: l}, nil
		}
		if err := l.Unlock(); err != nil {
			return nil, models.NewStageError(string(StageInit), output, models.ErrInvalidParameter,
				fmt.Errorf("release stale lock: %w", err))
		}
	}
	return nil, models.NewStageError(string(StageInit), output, models.ErrInvalidParameter,
		fmt.Errorf("lock file %s keeps changing", path))
}

// holds reports whether the file l has locked is still the one at path.
func holds(l *flock.Flock, path string) bool {
	locked, err := l.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(locked, current)
}

// Unlock removes the lock file, then releases the lock.
func (o *OutputLock) Unlock() error {
	if err := os.Remove(o.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return o.lock.Unlock()
}
