package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, reopenOnCancel bool) (*AppointmentLedger, *SlotRegistry, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	registry := NewSlotRegistry(repo, repo, nil, zerolog.Nop())
	clock := FixedClock{Instant: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)}
	return NewAppointmentLedger(repo, registry, clock, reopenOnCancel, zerolog.Nop()), registry, repo
}

func seedAppointment(t *testing.T, repo *MemoryRepository, registry *SlotRegistry, contact string, start time.Time) *Appointment {
	t.Helper()

	physID := uuid.New()
	repo.AddPhysician(physID, "Dr. Hana Sato")

	slot, err := registry.PublishSlot(context.Background(), physID, start, start.Add(30*time.Minute), start.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, registry.ClaimSlot(context.Background(), slot.ID))

	appt := &Appointment{
		ID:             uuid.New(),
		SlotID:         slot.ID,
		PhysicianID:    physID,
		PhysicianName:  "Dr. Hana Sato",
		PatientName:    "Jordan Lee",
		PatientContact: contact,
		PatientZone:    "Asia/Tokyo",
		StartTime:      start,
		EndTime:        start.Add(30 * time.Minute),
		MeetingRef:     "https://meet.telecare.example/meet/x",
		CreatedAt:      start.Add(-24 * time.Hour),
		Status:         StatusScheduled,
	}
	require.NoError(t, repo.InsertAppointment(context.Background(), appt))
	return appt
}

func TestListForPatientOrdersByStart(t *testing.T) {
	ledger, registry, repo := newTestLedger(t, false)

	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	late := seedAppointment(t, repo, registry, "jordan@example.com", base.Add(48*time.Hour))
	early := seedAppointment(t, repo, registry, "jordan@example.com", base)
	seedAppointment(t, repo, registry, "someone-else@example.com", base.Add(time.Hour))

	got, err := ledger.ListForPatient(context.Background(), "jordan@example.com")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)
}

func TestListForPhysician(t *testing.T) {
	ledger, registry, repo := newTestLedger(t, false)

	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	appt := seedAppointment(t, repo, registry, "jordan@example.com", base)

	got, err := ledger.ListForPhysician(context.Background(), appt.PhysicianID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, appt.ID, got[0].ID)
}

func TestCompleteTransition(t *testing.T) {
	ledger, registry, repo := newTestLedger(t, false)
	appt := seedAppointment(t, repo, registry, "jordan@example.com", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

	updated, err := ledger.Complete(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	// Terminal states cannot be left.
	_, err = ledger.Cancel(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	_, err = ledger.Complete(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCancelKeepsSlotClaimedByDefault(t *testing.T) {
	ledger, registry, repo := newTestLedger(t, false)
	appt := seedAppointment(t, repo, registry, "jordan@example.com", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

	updated, err := ledger.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)

	slot, err := repo.GetSlotByID(context.Background(), appt.SlotID)
	require.NoError(t, err)
	assert.True(t, slot.Claimed, "without the reopen policy the slot stays claimed")
}

func TestCancelReopensSlotWhenPolicyEnabled(t *testing.T) {
	ledger, registry, repo := newTestLedger(t, true)
	appt := seedAppointment(t, repo, registry, "jordan@example.com", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

	_, err := ledger.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	slot, err := repo.GetSlotByID(context.Background(), appt.SlotID)
	require.NoError(t, err)
	assert.False(t, slot.Claimed, "reopen policy frees the slot for rebooking")
}

func TestSecondLiveAppointmentOnSlotRejected(t *testing.T) {
	_, registry, repo := newTestLedger(t, false)
	appt := seedAppointment(t, repo, registry, "jordan@example.com", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

	dup := *appt
	dup.ID = uuid.New()
	dup.PatientContact = "sam@example.com"
	err := repo.InsertAppointment(context.Background(), &dup)
	assert.ErrorIs(t, err, ErrInconsistentState, "a slot carries at most one live appointment")
}

func TestStatusOpsOnMissingAppointment(t *testing.T) {
	ledger, _, _ := newTestLedger(t, false)

	_, err := ledger.Complete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	_, err = ledger.Cancel(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMessagesAppendAndList(t *testing.T) {
	ledger, registry, repo := newTestLedger(t, false)
	appt := seedAppointment(t, repo, registry, "jordan@example.com", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

	first, err := ledger.AppendMessage(context.Background(), appt.ID, SenderPatient, "Is video ok?")
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = ledger.AppendMessage(context.Background(), appt.ID, SenderPhysician, "Yes, see the meeting link.")
	require.NoError(t, err)

	msgs, err := ledger.ListMessages(context.Background(), appt.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderPatient, msgs[0].Sender)
	assert.Equal(t, "Is video ok?", msgs[0].Body)
}

func TestMessagesRequireExistingAppointment(t *testing.T) {
	ledger, _, _ := newTestLedger(t, false)

	_, err := ledger.AppendMessage(context.Background(), uuid.New(), SenderPatient, "hello?")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestAppendMessageRejectsUnknownSender(t *testing.T) {
	ledger, registry, repo := newTestLedger(t, false)
	appt := seedAppointment(t, repo, registry, "jordan@example.com", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

	_, err := ledger.AppendMessage(context.Background(), appt.ID, Sender("bot"), "beep")
	assert.Error(t, err)
}
