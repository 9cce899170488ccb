package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory implementation of Repository
// and PhysicianDirectory. It backs the tests and local runs without
// Postgres; the claim check-and-set happens under one lock acquisition, so
// it honors the same atomicity contract as the SQL CAS.
type MemoryRepository struct {
	mu           sync.Mutex
	physicians   map[uuid.UUID]string
	slots        map[uuid.UUID]*AvailabilitySlot
	appointments map[uuid.UUID]*Appointment
	messages     map[uuid.UUID][]Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		physicians:   make(map[uuid.UUID]string),
		slots:        make(map[uuid.UUID]*AvailabilitySlot),
		appointments: make(map[uuid.UUID]*Appointment),
		messages:     make(map[uuid.UUID][]Message),
	}
}

// Directory helpers

func (r *MemoryRepository) AddPhysician(id uuid.UUID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.physicians[id] = name
}

func (r *MemoryRepository) RenamePhysician(id uuid.UUID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.physicians[id]; ok {
		r.physicians[id] = name
	}
}

// RemovePhysician deletes a physician and, per the ownership rule, every
// slot it published.
func (r *MemoryRepository) RemovePhysician(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.physicians, id)
	for slotID, slot := range r.slots {
		if slot.PhysicianID == id {
			delete(r.slots, slotID)
		}
	}
}

func (r *MemoryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.physicians[id]
	return ok, nil
}

func (r *MemoryRepository) NameOf(ctx context.Context, id uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.physicians[id]
	if !ok {
		return "", ErrPhysicianNotFound
	}
	return name, nil
}

// Slots

func (r *MemoryRepository) InsertSlot(ctx context.Context, slot *AvailabilitySlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *MemoryRepository) ListSlotsByPhysician(ctx context.Context, physicianID uuid.UUID, after *time.Time) ([]AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []AvailabilitySlot
	for _, slot := range r.slots {
		if slot.PhysicianID != physicianID {
			continue
		}
		if after != nil && !slot.EndTime.After(*after) {
			continue
		}
		result = append(result, *slot)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})

	return result, nil
}

func (r *MemoryRepository) ClaimSlot(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if slot.Claimed {
		return ErrSlotAlreadyClaimed
	}
	slot.Claimed = true
	return nil
}

func (r *MemoryRepository) ReleaseSlot(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	slot.Claimed = false
	return nil
}

// Appointments

func (r *MemoryRepository) InsertAppointment(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Mirror the partial unique index on appointments(slot_id): at most one
	// live appointment per slot, cancelled rows don't count.
	for _, existing := range r.appointments {
		if existing.SlotID == appt.SlotID && existing.Status != StatusCancelled {
			return ErrInconsistentState
		}
	}

	cp := *appt
	r.appointments[appt.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *MemoryRepository) ListAppointmentsByPatient(ctx context.Context, patientContact string) ([]Appointment, error) {
	return r.listAppointments(func(a *Appointment) bool {
		return a.PatientContact == patientContact
	})
}

func (r *MemoryRepository) ListAppointmentsByPhysician(ctx context.Context, physicianID uuid.UUID) ([]Appointment, error) {
	return r.listAppointments(func(a *Appointment) bool {
		return a.PhysicianID == physicianID
	})
}

func (r *MemoryRepository) listAppointments(match func(*Appointment) bool) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, appt := range r.appointments {
		if match(appt) {
			result = append(result, *appt)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})

	return result, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if appt.Status != from {
		return nil, ErrInvalidStatusTransition
	}
	appt.Status = to
	cp := *appt
	return &cp, nil
}

// Messages

func (r *MemoryRepository) InsertMessage(ctx context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appointments[msg.AppointmentID]; !ok {
		return ErrAppointmentNotFound
	}
	r.messages[msg.AppointmentID] = append(r.messages[msg.AppointmentID], *msg)
	return nil
}

func (r *MemoryRepository) ListMessages(ctx context.Context, appointmentID uuid.UUID) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.messages[appointmentID]
	result := make([]Message, len(msgs))
	copy(result, msgs)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SentAt.Before(result[j].SentAt)
	})

	return result, nil
}
