package sync

import (
	"errors"
	"fmt"

	"github.com/gitvol/gitvol/internal/utils"
	"github.com/gofrs/flock"
)

var ErrStoreLocked = errors.New("fingerprint store locked by another run")

// RunLock serializes whole runs on the same fingerprint store. Two
// overlapping invocations (a slow run plus the next cron tick) would race
// the load-to-persist sequence, so the lock is held across all of it.
type RunLock struct {
	flock *flock.Flock
}

// NewRunLock creates a lock guarding the given store file.
func NewRunLock(storePath string) *RunLock {
	return &RunLock{flock: flock.New(storePath + ".lock")}
}

// Acquire takes the lock without blocking. A held lock means another run
// owns the store right now.
func (l *RunLock) Acquire() error {
	if err := utils.EnsureParent(l.flock.Path()); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	if !locked {
		return ErrStoreLocked
	}
	return nil
}

// Release drops the lock if held. The lock file itself stays on disk;
// exclusion comes from the flock, not from the file's existence.
func (l *RunLock) Release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock store: %w", err)
	}
	return nil
}
