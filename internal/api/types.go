package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type PublishSlotRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SlotResponse struct {
	ID          uuid.UUID `json:"id"`
	PhysicianID uuid.UUID `json:"physician_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Claimed     bool      `json:"claimed"`
}

type BookRequest struct {
	SlotID         string `json:"slot_id"`
	PatientName    string `json:"patient_name"`
	PatientContact string `json:"patient_contact"`
	PatientZone    string `json:"patient_zone"`
	Reason         string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PhysicianID    uuid.UUID `json:"physician_id"`
	PhysicianName  string    `json:"physician_name"`
	PatientName    string    `json:"patient_name"`
	PatientContact string    `json:"patient_contact"`
	PatientZone    string    `json:"patient_zone"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	StartLocal     string    `json:"start_local,omitempty"`
	EndLocal       string    `json:"end_local,omitempty"`
	MeetingRef     string    `json:"meeting_ref"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Status         string    `json:"status"`
}

type PhysicianResponse struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	Country     string    `json:"country"`
	Zone        string    `json:"zone"`
	Specialties []string  `json:"specialties"`
	Languages   []string  `json:"languages"`
	About       string    `json:"about,omitempty"`
}

type AppendMessageRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

type MessageResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Sender        string    `json:"sender"`
	Body          string    `json:"body"`
	SentAt        time.Time `json:"sent_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
