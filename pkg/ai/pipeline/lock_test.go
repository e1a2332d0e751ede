package pipeline

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	l := NewLock()

	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire(), "second acquire is rejected")
	l.Release()
	assert.True(t, l.TryAcquire(), "lock is reusable after release")
	l.Release()
}

func TestLock_SingleHolder(t *testing.T) {
	l := NewLock()

	var (
		wg      sync.WaitGroup
		holders atomic.Int32
		peak    atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !l.TryAcquire() {
				return
			}
			n := holders.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			holders.Add(-1)
			l.Release()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(1))
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weave.lock")
	first := NewFileLock(path)
	second := NewFileLock(path)

	require.True(t, first.TryAcquire())
	assert.False(t, first.TryAcquire(), "held in this process")
	assert.False(t, second.TryAcquire(), "held through the lock file")

	first.Release()
	require.True(t, second.TryAcquire())
	second.Release()

	assert.FileExists(t, path)
}

func TestFileLock_UnwritablePath(t *testing.T) {
	l := NewFileLock(filepath.Join(t.TempDir(), "missing", "dir", "weave.lock"))

	assert.False(t, l.TryAcquire())
	// The in-process half was released again.
	assert.True(t, l.sem.TryAcquire(1))
}
