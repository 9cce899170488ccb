package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/slot-booking/internal/metrics"
	redisclient "github.com/telecare/slot-booking/internal/redis"
	"github.com/telecare/slot-booking/internal/timezone"
)

const (
	outcomeBooked         = "booked"
	outcomeAlreadyClaimed = "already_claimed"
	outcomeRejected       = "rejected"
	outcomeError          = "error"
)

// BookingRequest carries everything a patient submits to claim a slot.
type BookingRequest struct {
	SlotID         uuid.UUID
	PatientName    string
	PatientContact string
	PatientZone    string
	Reason         string
}

// Engine orchestrates the registry, directory, link generator and ledger
// inside one atomic unit of work per booking attempt. A claim that cannot
// be turned into an appointment is rolled back before Book returns.
type Engine struct {
	registry  *SlotRegistry
	ledger    *AppointmentLedger
	directory PhysicianDirectory
	links     LinkGenerator
	locker    redisclient.Locker
	clock     Clock
	metrics   *metrics.BookingMetrics
	log       zerolog.Logger
}

func NewEngine(
	registry *SlotRegistry,
	ledger *AppointmentLedger,
	directory PhysicianDirectory,
	links LinkGenerator,
	locker redisclient.Locker,
	clock Clock,
	m *metrics.BookingMetrics,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		registry:  registry,
		ledger:    ledger,
		directory: directory,
		links:     links,
		locker:    locker,
		clock:     clock,
		metrics:   m,
		log:       log.With().Str("component", "booking_engine").Logger(),
	}
}

// Book claims the slot for the patient and records the appointment.
// Exactly one of N concurrent calls on the same slot succeeds; the losers
// get ErrSlotAlreadyClaimed. A failure downstream of a successful claim
// releases the claim again, so no claimed-but-unbooked slot survives.
func (e *Engine) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	start := time.Now()

	// Fail fast before touching slot state.
	if err := timezone.Validate(req.PatientZone); err != nil {
		e.metrics.ObserveBooking(outcomeRejected, time.Since(start).Seconds())
		return nil, err
	}

	var appt *Appointment

	claimAndWrite := func(lockCtx context.Context) error {
		slot, err := e.registry.repo.GetSlotByID(lockCtx, req.SlotID)
		if err != nil {
			return err
		}

		if err := e.registry.ClaimSlot(lockCtx, req.SlotID); err != nil {
			return err
		}

		appt, err = e.writeAppointment(lockCtx, slot, req)
		if err != nil {
			e.rollbackClaim(req.SlotID)
			return err
		}
		return nil
	}

	err := e.locker.WithSlotLock(ctx, req.SlotID, claimAndWrite)
	if errors.Is(err, redisclient.ErrLockUnavailable) {
		// The claim CAS is the authority; the lock only serializes
		// same-slot contenders. A lock outage therefore degrades to
		// racing the CAS directly instead of failing the booking.
		e.log.Warn().
			Err(err).
			Str("slot_id", req.SlotID.String()).
			Msg("slot lock unavailable, booking on bare claim")
		err = claimAndWrite(ctx)
	}

	if err != nil {
		e.metrics.ObserveBooking(outcomeFor(err), time.Since(start).Seconds())
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	e.metrics.ObserveBooking(outcomeBooked, time.Since(start).Seconds())
	e.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("slot_id", req.SlotID.String()).
		Str("patient_zone", req.PatientZone).
		Msg("slot booked")

	return appt, nil
}

// writeAppointment resolves the physician, issues the meeting reference and
// persists the record. Runs strictly after a successful claim.
func (e *Engine) writeAppointment(ctx context.Context, slot *AvailabilitySlot, req BookingRequest) (*Appointment, error) {
	physicianName, err := e.directory.NameOf(ctx, slot.PhysicianID)
	if err != nil {
		if errors.Is(err, ErrPhysicianNotFound) {
			// The slot referenced this physician at publish time. Losing it
			// now is a data-integrity fault, not a user error.
			return nil, fmt.Errorf("%w: slot %s references physician %s: %v",
				ErrInconsistentState, slot.ID, slot.PhysicianID, err)
		}
		return nil, fmt.Errorf("resolve physician: %w", err)
	}

	appt := &Appointment{
		ID:             uuid.New(),
		SlotID:         slot.ID,
		PhysicianID:    slot.PhysicianID,
		PhysicianName:  physicianName,
		PatientName:    req.PatientName,
		PatientContact: req.PatientContact,
		PatientZone:    req.PatientZone,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		Reason:         req.Reason,
		CreatedAt:      e.clock.Now(),
		Status:         StatusScheduled,
	}
	appt.MeetingRef = e.links.Issue(appt.ID)

	if err := e.ledger.record(ctx, appt); err != nil {
		return nil, fmt.Errorf("record appointment: %w", err)
	}

	return appt, nil
}

// rollbackClaim is the compensating action for a failed booking. It runs on
// a fresh context so a cancelled request cannot strand the slot claimed.
func (e *Engine) rollbackClaim(slotID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.registry.release(ctx, slotID); err != nil {
		// A stranded claim breaks the no-orphan invariant; make it loud.
		e.log.Error().
			Err(err).
			Str("slot_id", slotID.String()).
			Msg("claim rollback failed, slot may be stranded claimed")
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrSlotAlreadyClaimed):
		return outcomeAlreadyClaimed
	case errors.Is(err, ErrSlotNotFound):
		return outcomeRejected
	default:
		return outcomeError
	}
}
