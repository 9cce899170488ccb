package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidTimeRange        = errors.New("slot start must be before slot end")
	ErrPhysicianNotFound       = errors.New("physician not found")
	ErrSlotNotFound            = errors.New("slot not found")
	ErrSlotAlreadyClaimed      = errors.New("slot already claimed")
	ErrSlotBusy                = errors.New("slot is currently being booked, please retry")
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")

	// ErrInconsistentState marks a data-integrity fault: a claimed slot whose
	// physician cannot be resolved. It is never a user-correctable condition.
	ErrInconsistentState = errors.New("inconsistent booking state")
)

// PhysicianDirectory is the read-only view of physician identity the core
// needs. The full directory (search, profiles) lives outside the engine.
type PhysicianDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	NameOf(ctx context.Context, id uuid.UUID) (string, error)
}

// LinkGenerator issues the opaque meeting reference stored on an
// appointment. Treated as total: it does not fail.
type LinkGenerator interface {
	Issue(appointmentID uuid.UUID) string
}

// Repository contains all storage interactions needed by the registry,
// engine and ledger.
type Repository interface {
	InsertSlot(ctx context.Context, slot *AvailabilitySlot) error
	GetSlotByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error)
	// ListSlotsByPhysician returns slots ascending by start time. When after
	// is non-nil, slots whose end time is at or before it are excluded.
	ListSlotsByPhysician(ctx context.Context, physicianID uuid.UUID, after *time.Time) ([]AvailabilitySlot, error)
	// ClaimSlot transitions a slot from unclaimed to claimed as one atomic
	// check-and-set. Returns ErrSlotAlreadyClaimed when the slot is taken.
	ClaimSlot(ctx context.Context, id uuid.UUID) error
	// ReleaseSlot undoes a claim. Only the booking rollback and the
	// cancel-reopen policy may call it.
	ReleaseSlot(ctx context.Context, id uuid.UUID) error

	InsertAppointment(ctx context.Context, appt *Appointment) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientContact string) ([]Appointment, error)
	ListAppointmentsByPhysician(ctx context.Context, physicianID uuid.UUID) ([]Appointment, error)
	// UpdateAppointmentStatus applies from -> to only if the current status
	// still equals from, so a terminal state can never be overwritten.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	InsertMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, appointmentID uuid.UUID) ([]Message, error)
}

// DB is the subset of pgxpool.Pool the Postgres repository uses. pgxmock
// satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
