package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/telecare/slot-booking/internal/booking"
	"github.com/telecare/slot-booking/internal/directory"
	redisclient "github.com/telecare/slot-booking/internal/redis"
	"github.com/telecare/slot-booking/internal/timezone"
)

type handlers struct {
	registry  *booking.SlotRegistry
	engine    *booking.Engine
	ledger    *booking.AppointmentLedger
	directory PhysicianSearcher
	clock     booking.Clock
}

// Physician directory

func (h *handlers) searchPhysicians(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := directory.SearchFilter{
		Specialty: q.Get("specialty"),
		Language:  q.Get("language"),
		Country:   q.Get("country"),
		Search:    q.Get("q"),
	}

	physicians, err := h.directory.Search(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	resp := make([]PhysicianResponse, 0, len(physicians))
	for _, p := range physicians {
		resp = append(resp, PhysicianResponse{
			ID:          p.ID,
			FullName:    p.FullName,
			Country:     p.Country,
			Zone:        p.Zone,
			Specialties: p.Specialties,
			Languages:   p.Languages,
			About:       p.About,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Slots

func (h *handlers) publishSlot(w http.ResponseWriter, r *http.Request) {
	physicianID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req PublishSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	slot, err := h.registry.PublishSlot(r.Context(), physicianID, req.Start, req.End, h.clock.Now())
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidTimeRange):
			writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())
		case errors.Is(err, booking.ErrPhysicianNotFound):
			writeError(w, http.StatusNotFound, "physician_not_found", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, slotResponse(slot))
}

func (h *handlers) listSlots(w http.ResponseWriter, r *http.Request) {
	physicianID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	onlyFuture := true
	if v := r.URL.Query().Get("only_future"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_only_future", "only_future must be a boolean")
			return
		}
		onlyFuture = parsed
	}

	slots, err := h.registry.ListSlots(r.Context(), physicianID, onlyFuture, h.clock.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	resp := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		resp = append(resp, slotResponse(&slots[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Booking

func (h *handlers) book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
		return
	}
	if req.PatientName == "" || req.PatientContact == "" {
		writeError(w, http.StatusBadRequest, "missing_patient_details", "patient_name and patient_contact are required")
		return
	}

	appt, err := h.engine.Book(r.Context(), booking.BookingRequest{
		SlotID:         slotID,
		PatientName:    req.PatientName,
		PatientContact: req.PatientContact,
		PatientZone:    req.PatientZone,
		Reason:         req.Reason,
	})
	if err != nil {
		handleBookError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, appointmentResponse(appt, true))
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timezone.ErrInvalidTimeZone):
		writeError(w, http.StatusBadRequest, "invalid_time_zone", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotAlreadyClaimed):
		// Expected race outcome: the caller should re-fetch availability and
		// pick another slot, not retry this one.
		writeError(w, http.StatusConflict, "slot_already_claimed", err.Error())
	case errors.Is(err, booking.ErrSlotBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_busy", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInconsistentState):
		writeError(w, http.StatusInternalServerError, "inconsistent_state", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Appointments

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	appt, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		handleAppointmentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appointmentResponse(appt, true))
}

func (h *handlers) listPatientAppointments(w http.ResponseWriter, r *http.Request) {
	contact := r.URL.Query().Get("patient_contact")
	if contact == "" {
		writeError(w, http.StatusBadRequest, "missing_patient_contact", "patient_contact is required")
		return
	}

	appts, err := h.ledger.ListForPatient(r.Context(), contact)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, appointmentResponses(appts))
}

func (h *handlers) listPhysicianAppointments(w http.ResponseWriter, r *http.Request) {
	physicianID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	appts, err := h.ledger.ListForPhysician(r.Context(), physicianID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, appointmentResponses(appts))
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, h.ledger.Cancel)
}

func (h *handlers) completeAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, h.ledger.Complete)
}

func (h *handlers) transitionAppointment(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	appt, err := op(r.Context(), id)
	if err != nil {
		handleAppointmentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appointmentResponse(appt, false))
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Messages

func (h *handlers) appendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "empty_message", "body is required")
		return
	}

	sender := booking.Sender(req.Sender)
	if sender != booking.SenderPatient && sender != booking.SenderPhysician {
		writeError(w, http.StatusBadRequest, "invalid_sender", "sender must be patient or physician")
		return
	}

	msg, err := h.ledger.AppendMessage(r.Context(), id, sender, req.Body)
	if err != nil {
		handleAppointmentError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse(msg))
}

func (h *handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	msgs, err := h.ledger.ListMessages(r.Context(), id)
	if err != nil {
		handleAppointmentError(w, err)
		return
	}

	resp := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		resp = append(resp, messageResponse(&msgs[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helpers

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func slotResponse(s *booking.AvailabilitySlot) SlotResponse {
	return SlotResponse{
		ID:          s.ID,
		PhysicianID: s.PhysicianID,
		Start:       s.StartTime,
		End:         s.EndTime,
		Claimed:     s.Claimed,
	}
}

func appointmentResponse(a *booking.Appointment, withLocal bool) AppointmentResponse {
	resp := AppointmentResponse{
		ID:             a.ID,
		PhysicianID:    a.PhysicianID,
		PhysicianName:  a.PhysicianName,
		PatientName:    a.PatientName,
		PatientContact: a.PatientContact,
		PatientZone:    a.PatientZone,
		Start:          a.StartTime,
		End:            a.EndTime,
		MeetingRef:     a.MeetingRef,
		Reason:         a.Reason,
		CreatedAt:      a.CreatedAt,
		Status:         string(a.Status),
	}

	if withLocal {
		// The zone was validated at booking time; a failure here only drops
		// the display fields.
		if s, err := timezone.FormatLocal(a.StartTime, a.PatientZone); err == nil {
			resp.StartLocal = s
		}
		if e, err := timezone.FormatLocal(a.EndTime, a.PatientZone); err == nil {
			resp.EndLocal = e
		}
	}

	return resp
}

func appointmentResponses(appts []booking.Appointment) []AppointmentResponse {
	resp := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		resp = append(resp, appointmentResponse(&appts[i], true))
	}
	return resp
}

func messageResponse(m *booking.Message) MessageResponse {
	return MessageResponse{
		ID:            m.ID,
		AppointmentID: m.AppointmentID,
		Sender:        string(m.Sender),
		Body:          m.Body,
		SentAt:        m.SentAt,
	}
}
