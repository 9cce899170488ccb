package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Sender string

const (
	SenderPatient   Sender = "patient"
	SenderPhysician Sender = "physician"
)

// AvailabilitySlot is a physician-published interval of absolute time.
// Claimed transitions from false to true exactly once; the only path back
// is the booking rollback and the configured cancel-reopen policy.
type AvailabilitySlot struct {
	ID          uuid.UUID
	PhysicianID uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	Claimed     bool
	CreatedAt   time.Time
}

// Appointment is the immutable record produced by a successful claim.
// PhysicianName is denormalized at creation time: renaming the physician
// later must not rewrite history. Start and end are copied from the slot.
type Appointment struct {
	ID             uuid.UUID
	SlotID         uuid.UUID
	PhysicianID    uuid.UUID
	PhysicianName  string
	PatientName    string
	PatientContact string
	PatientZone    string
	StartTime      time.Time
	EndTime        time.Time
	MeetingRef     string
	Reason         string
	CreatedAt      time.Time
	Status         AppointmentStatus
}

// Message is one entry in the append-only thread attached to an appointment.
type Message struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Sender        Sender
	Body          string
	SentAt        time.Time
}
