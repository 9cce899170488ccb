package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func TestPgClaimSlotSucceedsOnUnclaimedRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE availability").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ClaimSlot(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgClaimSlotAlreadyClaimed(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	// The CAS matched no row; the follow-up read finds the slot taken.
	mock.ExpectExec("UPDATE availability").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT claimed FROM availability").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"claimed"}).AddRow(true))

	err := repo.ClaimSlot(context.Background(), id)
	assert.ErrorIs(t, err, ErrSlotAlreadyClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgClaimSlotNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE availability").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT claimed FROM availability").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"claimed"}))

	err := repo.ClaimSlot(context.Background(), id)
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgReleaseSlot(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE availability").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ReleaseSlot(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListSlotsFutureFilterUsesBoundNow(t *testing.T) {
	repo, mock := newMockRepo(t)
	physID := uuid.New()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "physician_id", "start_time", "end_time", "claimed", "created_at"}).
		AddRow(uuid.New(), physID, now.Add(time.Hour), now.Add(90*time.Minute), false, now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT id, physician_id, start_time, end_time, claimed, created_at\s+FROM availability\s+WHERE physician_id = \$1\s+AND end_time > \$2 ORDER BY start_time ASC`).
		WithArgs(physID, now).
		WillReturnRows(rows)

	got, err := repo.ListSlotsByPhysician(context.Background(), physID, &now)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateAppointmentStatusDistinguishesMismatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	cols := []string{
		"id", "slot_id", "physician_id", "physician_name", "patient_name", "patient_contact",
		"patient_zone", "start_time", "end_time", "meeting_ref", "reason", "created_at", "status",
	}

	// CAS on status matches nothing, but the appointment exists: mismatch.
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusCompleted, StatusScheduled).
		WillReturnRows(pgxmock.NewRows(cols))
	mock.ExpectQuery("SELECT(?s:.+)FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			id, uuid.New(), uuid.New(), "Dr. Hana Sato", "Jordan Lee", "jordan@example.com",
			"Asia/Tokyo", time.Now(), time.Now().Add(30*time.Minute),
			"https://meet.telecare.example/meet/x", nil, time.Now(), StatusCancelled,
		))

	_, err := repo.UpdateAppointmentStatus(context.Background(), id, StatusScheduled, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateAppointmentStatusNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	cols := []string{
		"id", "slot_id", "physician_id", "physician_name", "patient_name", "patient_contact",
		"patient_zone", "start_time", "end_time", "meeting_ref", "reason", "created_at", "status",
	}

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusCancelled, StatusScheduled).
		WillReturnRows(pgxmock.NewRows(cols))
	mock.ExpectQuery("SELECT(?s:.+)FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(cols))

	_, err := repo.UpdateAppointmentStatus(context.Background(), id, StatusScheduled, StatusCancelled)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
