package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanSlot(row pgx.Row) (*AvailabilitySlot, error) {
	var s AvailabilitySlot

	err := row.Scan(
		&s.ID,
		&s.PhysicianID,
		&s.StartTime,
		&s.EndTime,
		&s.Claimed,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var reason *string

	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.PhysicianID,
		&a.PhysicianName,
		&a.PatientName,
		&a.PatientContact,
		&a.PatientZone,
		&a.StartTime,
		&a.EndTime,
		&a.MeetingRef,
		&reason,
		&a.CreatedAt,
		&a.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if reason != nil {
		a.Reason = *reason
	}
	return &a, nil
}

const appointmentColumns = `id, slot_id, physician_id, physician_name, patient_name, patient_contact,
		       patient_zone, start_time, end_time, meeting_ref, reason, created_at, status`

// Slots

func (r *PgRepository) InsertSlot(ctx context.Context, slot *AvailabilitySlot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO availability (id, physician_id, start_time, end_time, claimed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, slot.ID, slot.PhysicianID, slot.StartTime, slot.EndTime, slot.Claimed, slot.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, physician_id, start_time, end_time, claimed, created_at
		FROM availability
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlotsByPhysician(ctx context.Context, physicianID uuid.UUID, after *time.Time) ([]AvailabilitySlot, error) {
	query := `
		SELECT id, physician_id, start_time, end_time, claimed, created_at
		FROM availability
		WHERE physician_id = $1
	`
	args := []any{physicianID}

	if after != nil {
		query += ` AND end_time > $2`
		args = append(args, *after)
	}
	query += ` ORDER BY start_time ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ClaimSlot is the atomic check-and-set on the claim flag. The WHERE clause
// makes the read and the write one statement, so two concurrent claims can
// never both match.
func (r *PgRepository) ClaimSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE availability
		SET claimed = true
		WHERE id = $1
		  AND claimed = false
	`, id)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the slot does not exist or it was already taken.
		var claimed bool
		err := r.db.QueryRow(ctx, `
			SELECT claimed FROM availability WHERE id = $1
		`, id).Scan(&claimed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSlotNotFound
			}
			return fmt.Errorf("check slot state: %w", err)
		}
		return ErrSlotAlreadyClaimed
	}

	return nil
}

func (r *PgRepository) ReleaseSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE availability
		SET claimed = false
		WHERE id = $1
		  AND claimed = true
	`, id)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// Appointments

func (r *PgRepository) InsertAppointment(ctx context.Context, appt *Appointment) error {
	var reason *string
	if appt.Reason != "" {
		reason = &appt.Reason
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (id, slot_id, physician_id, physician_name, patient_name,
		                          patient_contact, patient_zone, start_time, end_time,
		                          meeting_ref, reason, created_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, appt.ID, appt.SlotID, appt.PhysicianID, appt.PhysicianName, appt.PatientName,
		appt.PatientContact, appt.PatientZone, appt.StartTime, appt.EndTime,
		appt.MeetingRef, reason, appt.CreatedAt, appt.Status)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientContact string) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_contact = $1
		ORDER BY start_time ASC
	`, patientContact)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByPhysician(ctx context.Context, physicianID uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE physician_id = $1
		ORDER BY start_time ASC
	`, physicianID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Distinguish a missing appointment from a status mismatch.
			if _, getErr := r.GetAppointmentByID(ctx, id); getErr == nil {
				return nil, ErrInvalidStatusTransition
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return appt, nil
}

// Messages

func (r *PgRepository) InsertMessage(ctx context.Context, msg *Message) error {
	// The thread belongs to exactly one appointment; verify membership first.
	if _, err := r.GetAppointmentByID(ctx, msg.AppointmentID); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, appointment_id, sender, body, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.AppointmentID, msg.Sender, msg.Body, msg.SentAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *PgRepository) ListMessages(ctx context.Context, appointmentID uuid.UUID) ([]Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, appointment_id, sender, body, sent_at
		FROM messages
		WHERE appointment_id = $1
		ORDER BY sent_at ASC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.AppointmentID, &m.Sender, &m.Body, &m.SentAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
