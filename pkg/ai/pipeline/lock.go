package pipeline

import (
	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"

	log "github.com/cloudposse/weave/pkg/logger"
)

// Lock admits one pipeline run at a time. Attempts made while a run is in flight
// fail immediately instead of waiting.
type Lock struct {
	sem  *semaphore.Weighted
	file *flock.Flock
}

// NewLock creates an unheld in-process lock.
func NewLock() *Lock {
	return &Lock{sem: semaphore.NewWeighted(1)}
}

// NewFileLock creates a lock that is also exclusive across processes sharing path,
// such as several hosts invoking `weave run` for the same chat.
func NewFileLock(path string) *Lock {
	return &Lock{
		sem:  semaphore.NewWeighted(1),
		file: flock.New(path),
	}
}

// TryAcquire takes the lock if it is free.
func (l *Lock) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	if l.file == nil {
		return true
	}

	locked, err := l.file.TryLock()
	if err != nil {
		log.Warn("Failed to take the pipeline lock file", "path", l.file.Path(), "error", err)
	}
	if !locked {
		l.sem.Release(1)
		return false
	}
	return true
}

// Release frees the lock. It panics if the lock is not held.
func (l *Lock) Release() {
	if l.file != nil {
		if err := l.file.Unlock(); err != nil {
			log.Trace("Failed to unlock the pipeline lock file", "path", l.file.Path(), "error", err)
		}
	}
	l.sem.Release(1)
}
