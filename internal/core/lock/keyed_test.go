package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, "k")
			require.NoError(t, err)
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, m.Len())
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := m.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	timeout, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := m.Lock(timeout, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutex_ContextCancelWhileWaiting(t *testing.T) {
	m := NewKeyedMutex()
	unlock, err := m.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, m.Len())
}

func TestLockAll_DedupAndRelease(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	unlock, err := LockAll(ctx, m, "b", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	unlock()
	assert.Equal(t, 0, m.Len())
}

func TestLockAll_OppositeOrderNoDeadlock(t *testing.T) {
	m := NewKeyedMutex()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock, err := LockAll(ctx, m, "x", "y")
			if assert.NoError(t, err) {
				unlock()
			}
		}()
		go func() {
			defer wg.Done()
			unlock, err := LockAll(ctx, m, "y", "x")
			if assert.NoError(t, err) {
				unlock()
			}
		}()
	}
	wg.Wait()
}

func TestHold_NestedCallsReuseHeldKeys(t *testing.T) {
	m := NewKeyedMutex()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	outer, unlock, err := Hold(ctx, m, "stock:b", "stock:a")
	require.NoError(t, err)
	assert.True(t, IsHeld(outer, "stock:a"))
	assert.False(t, IsHeld(ctx, "stock:a"))

	// Same key again on the held ctx returns at once instead of waiting.
	inner, innerUnlock, err := Hold(outer, m, "stock:a", "stock:c")
	require.NoError(t, err)
	assert.True(t, IsHeld(inner, "stock:c"))
	assert.Equal(t, 3, m.Len())

	innerUnlock()
	assert.Equal(t, 2, m.Len())

	// Another caller without the marker still waits.
	busy, cancelBusy := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelBusy()
	_, err = m.Lock(busy, "stock:a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, m.Len())
}
