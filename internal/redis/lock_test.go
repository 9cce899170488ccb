package redisclient

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, wait time.Duration) (Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSlotLocker(client, 2*time.Second, wait), mr
}

func TestWithSlotLockRunsCriticalSection(t *testing.T) {
	locker, mr := newTestLocker(t, time.Second)
	slotID := uuid.New()

	ran := false
	err := locker.WithSlotLock(context.Background(), slotID, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:slot:"+slotID.String()))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:slot:"+slotID.String()), "lock must be released afterwards")
}

func TestWithSlotLockSerializesSameSlot(t *testing.T) {
	locker, _ := newTestLocker(t, time.Second)
	slotID := uuid.New()

	var mu sync.Mutex
	var inSection, maxInSection int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithSlotLock(context.Background(), slotID, func(ctx context.Context) error {
				mu.Lock()
				inSection++
				if inSection > maxInSection {
					maxInSection = inSection
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inSection--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInSection, "critical sections for one slot must not overlap")
}

func TestWithSlotLockGivesUpAfterWait(t *testing.T) {
	locker, mr := newTestLocker(t, 50*time.Millisecond)
	slotID := uuid.New()

	// Foreign holder that never releases.
	mr.Set("lock:slot:"+slotID.String(), "someone-else")

	err := locker.WithSlotLock(context.Background(), slotID, func(ctx context.Context) error {
		t.Fatal("critical section must not run")
		return nil
	})

	require.ErrorIs(t, err, ErrLockNotAcquired)
	// The foreign lock must survive: release only deletes its own token.
	assert.True(t, mr.Exists("lock:slot:"+slotID.String()))
}

func TestWithSlotLockReportsDeadBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewRedisSlotLocker(client, 2*time.Second, 50*time.Millisecond)

	mr.Close()

	err := locker.WithSlotLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		t.Fatal("critical section must not run")
		return nil
	})

	require.ErrorIs(t, err, ErrLockUnavailable)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
}
