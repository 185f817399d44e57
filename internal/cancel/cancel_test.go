// file: internal/cancel/cancel_test.go
package cancel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceCancelFiresToken(t *testing.T) {
	s := NewSource()
	tok := s.Token()
	require.False(t, tok.IsCancelled())

	var fired atomic.Bool
	s.Cancel()
	tok.OnCancelled(func() { fired.Store(true) })

	require.Eventually(t, fired.Load, time.Second, time.Millisecond)
	assert.True(t, tok.IsCancelled())
}

func TestSourceCancelIsIdempotent(t *testing.T) {
	s := NewSource()
	var count atomic.Int32
	tok := s.Token()
	tok.OnCancelled(func() { count.Add(1) })

	s.Cancel()
	s.Cancel()
	s.Cancel()

	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, time.Millisecond)
}

func TestSourceTokenMaterializedAfterCancelReturnsPreCancelled(t *testing.T) {
	s := NewSource()
	s.Cancel()
	tok := s.Token()
	assert.True(t, tok.IsCancelled())

	fired := make(chan struct{}, 1)
	tok.OnCancelled(func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("handler on an already-cancelled token never ran")
	}
}

func TestSourceDisposeIgnoresSubsequentCancel(t *testing.T) {
	s := NewSource()
	s.Dispose()
	s.Cancel()
	assert.False(t, s.IsCancelled())
}

func TestOnCancelledDisposerUnregisters(t *testing.T) {
	s := NewSource()
	tok := s.Token()

	var called atomic.Bool
	dispose := tok.OnCancelled(func() { called.Store(true) })
	dispose()

	s.Cancel()
	time.Sleep(20 * time.Millisecond)
	assert.False(t, called.Load())
}

func TestMultipleListenersAllFire(t *testing.T) {
	s := NewSource()
	tok := s.Token()

	var a, b atomic.Bool
	tok.OnCancelled(func() { a.Store(true) })
	tok.OnCancelled(func() { b.Store(true) })
	s.Cancel()

	require.Eventually(t, func() bool { return a.Load() && b.Load() }, time.Second, time.Millisecond)
}
