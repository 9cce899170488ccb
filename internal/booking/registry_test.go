package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*SlotRegistry, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewSlotRegistry(repo, repo, nil, zerolog.Nop()), repo
}

func TestPublishSlotRejectsInvalidRange(t *testing.T) {
	registry, repo := newTestRegistry(t)
	physID := uuid.New()
	repo.AddPhysician(physID, "Dr. Hana Sato")

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)

	_, err := registry.PublishSlot(context.Background(), physID, start, start, now)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = registry.PublishSlot(context.Background(), physID, start, start.Add(-time.Minute), now)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestPublishSlotRejectsUnknownPhysician(t *testing.T) {
	registry, _ := newTestRegistry(t)

	start := time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)
	_, err := registry.PublishSlot(context.Background(), uuid.New(), start, start.Add(30*time.Minute), start)
	assert.ErrorIs(t, err, ErrPhysicianNotFound)
}

func TestListSlotsFutureFilterAndOrder(t *testing.T) {
	registry, repo := newTestRegistry(t)
	physID := uuid.New()
	repo.AddPhysician(physID, "Dr. Hana Sato")

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	publish := func(start, end time.Time) uuid.UUID {
		slot, err := registry.PublishSlot(context.Background(), physID, start, end, now)
		require.NoError(t, err)
		return slot.ID
	}

	// Published deliberately out of order.
	future2 := publish(now.Add(3*time.Hour), now.Add(3*time.Hour+30*time.Minute))
	past := publish(now.Add(-2*time.Hour), now.Add(-90*time.Minute))
	endsExactlyNow := publish(now.Add(-30*time.Minute), now)
	future1 := publish(now.Add(time.Hour), now.Add(90*time.Minute))

	all, err := registry.ListSlots(context.Background(), physID, false, now)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].StartTime.Before(all[i-1].StartTime), "slots must ascend by start time")
	}

	future, err := registry.ListSlots(context.Background(), physID, true, now)
	require.NoError(t, err)
	require.Len(t, future, 2, "end <= now must be excluded, end > now kept")
	assert.Equal(t, future1, future[0].ID)
	assert.Equal(t, future2, future[1].ID)

	for _, s := range future {
		assert.NotEqual(t, past, s.ID)
		assert.NotEqual(t, endsExactlyNow, s.ID)
	}
}

func TestClaimSlotNotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)
	err := registry.ClaimSlot(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestClaimSlotExactlyOnceUnderConcurrency(t *testing.T) {
	registry, repo := newTestRegistry(t)
	physID := uuid.New()
	repo.AddPhysician(physID, "Dr. Aisha Rahman")

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	slot, err := registry.PublishSlot(context.Background(), physID, now.Add(time.Hour), now.Add(90*time.Minute), now)
	require.NoError(t, err)

	const callers = 64

	var wg sync.WaitGroup
	results := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- registry.ClaimSlot(context.Background(), slot.ID)
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrSlotAlreadyClaimed):
			losses++
		}
	}

	assert.Equal(t, 1, wins, "exactly one concurrent claim may succeed")
	assert.Equal(t, callers-1, losses)

	final, err := repo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.True(t, final.Claimed)
}

func TestClaimThenClaimAgain(t *testing.T) {
	registry, repo := newTestRegistry(t)
	physID := uuid.New()
	repo.AddPhysician(physID, "Dr. Aisha Rahman")

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	slot, err := registry.PublishSlot(context.Background(), physID, now.Add(time.Hour), now.Add(90*time.Minute), now)
	require.NoError(t, err)

	require.NoError(t, registry.ClaimSlot(context.Background(), slot.ID))
	assert.ErrorIs(t, registry.ClaimSlot(context.Background(), slot.ID), ErrSlotAlreadyClaimed)
}
