package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/slot-booking/internal/metrics"
)

// SlotRegistry owns the set of availability slots and the claim state
// transition. Nothing else mutates a slot.
type SlotRegistry struct {
	repo      Repository
	directory PhysicianDirectory
	metrics   *metrics.BookingMetrics
	log       zerolog.Logger
}

func NewSlotRegistry(repo Repository, directory PhysicianDirectory, m *metrics.BookingMetrics, log zerolog.Logger) *SlotRegistry {
	return &SlotRegistry{
		repo:      repo,
		directory: directory,
		metrics:   m,
		log:       log.With().Str("component", "slot_registry").Logger(),
	}
}

// PublishSlot records a new unclaimed slot for a known physician.
func (r *SlotRegistry) PublishSlot(ctx context.Context, physicianID uuid.UUID, start, end time.Time, now time.Time) (*AvailabilitySlot, error) {
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}

	ok, err := r.directory.Exists(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("check physician: %w", err)
	}
	if !ok {
		return nil, ErrPhysicianNotFound
	}

	slot := &AvailabilitySlot{
		ID:          uuid.New(),
		PhysicianID: physicianID,
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		Claimed:     false,
		CreatedAt:   now.UTC(),
	}

	if err := r.repo.InsertSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("publish slot: %w", err)
	}

	r.metrics.ObserveSlotPublished()
	r.log.Debug().
		Str("slot_id", slot.ID.String()).
		Str("physician_id", physicianID.String()).
		Time("start", slot.StartTime).
		Msg("slot published")

	return slot, nil
}

// ListSlots returns a physician's slots ascending by start time. With
// onlyFuture set, slots that have already ended at now are excluded; a slot
// ending exactly at now counts as past.
func (r *SlotRegistry) ListSlots(ctx context.Context, physicianID uuid.UUID, onlyFuture bool, now time.Time) ([]AvailabilitySlot, error) {
	var after *time.Time
	if onlyFuture {
		n := now.UTC()
		after = &n
	}

	slots, err := r.repo.ListSlotsByPhysician(ctx, physicianID, after)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// ClaimSlot transitions one slot from unclaimed to claimed. Under N
// concurrent calls exactly one succeeds; the rest get ErrSlotAlreadyClaimed.
func (r *SlotRegistry) ClaimSlot(ctx context.Context, slotID uuid.UUID) error {
	return r.repo.ClaimSlot(ctx, slotID)
}

// release undoes a claim. It exists for the booking rollback and the
// cancel-reopen policy; there is no public release path.
func (r *SlotRegistry) release(ctx context.Context, slotID uuid.UUID) error {
	return r.repo.ReleaseSlot(ctx, slotID)
}
