package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AppointmentLedger owns appointment records: append-only at creation,
// single-writer status transitions afterwards. Terminal states never revert.
type AppointmentLedger struct {
	repo           Repository
	registry       *SlotRegistry
	clock          Clock
	reopenOnCancel bool
	log            zerolog.Logger
}

func NewAppointmentLedger(repo Repository, registry *SlotRegistry, clock Clock, reopenOnCancel bool, log zerolog.Logger) *AppointmentLedger {
	return &AppointmentLedger{
		repo:           repo,
		registry:       registry,
		clock:          clock,
		reopenOnCancel: reopenOnCancel,
		log:            log.With().Str("component", "appointment_ledger").Logger(),
	}
}

// record persists a newly created appointment. Only the engine calls it,
// inside the booking critical section.
func (l *AppointmentLedger) record(ctx context.Context, appt *Appointment) error {
	return l.repo.InsertAppointment(ctx, appt)
}

func (l *AppointmentLedger) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.repo.GetAppointmentByID(ctx, id)
}

func (l *AppointmentLedger) ListForPatient(ctx context.Context, patientContact string) ([]Appointment, error) {
	return l.repo.ListAppointmentsByPatient(ctx, patientContact)
}

func (l *AppointmentLedger) ListForPhysician(ctx context.Context, physicianID uuid.UUID) ([]Appointment, error) {
	return l.repo.ListAppointmentsByPhysician(ctx, physicianID)
}

// Complete moves a scheduled appointment to its completed terminal state.
func (l *AppointmentLedger) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := l.repo.UpdateAppointmentStatus(ctx, id, StatusScheduled, StatusCompleted)
	if err != nil {
		return nil, err
	}

	l.log.Info().Str("appointment_id", id.String()).Msg("appointment completed")
	return appt, nil
}

// Cancel moves a scheduled appointment to its cancelled terminal state.
// Whether the originating slot becomes bookable again is a deployment
// policy; by default it stays claimed.
func (l *AppointmentLedger) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := l.repo.UpdateAppointmentStatus(ctx, id, StatusScheduled, StatusCancelled)
	if err != nil {
		return nil, err
	}

	if l.reopenOnCancel {
		if err := l.registry.release(ctx, appt.SlotID); err != nil {
			// The cancellation itself stands; only the reopen failed.
			l.log.Error().
				Err(err).
				Str("appointment_id", id.String()).
				Str("slot_id", appt.SlotID.String()).
				Msg("failed to reopen slot after cancellation")
		}
	}

	l.log.Info().
		Str("appointment_id", id.String()).
		Bool("slot_reopened", l.reopenOnCancel).
		Msg("appointment cancelled")

	return appt, nil
}

// AppendMessage adds one entry to an appointment's message thread.
func (l *AppointmentLedger) AppendMessage(ctx context.Context, appointmentID uuid.UUID, sender Sender, body string) (*Message, error) {
	if sender != SenderPatient && sender != SenderPhysician {
		return nil, fmt.Errorf("unknown sender %q", sender)
	}

	msg := &Message{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		Sender:        sender,
		Body:          body,
		SentAt:        l.clock.Now(),
	}

	if err := l.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (l *AppointmentLedger) ListMessages(ctx context.Context, appointmentID uuid.UUID) ([]Message, error) {
	return l.repo.ListMessages(ctx, appointmentID)
}
