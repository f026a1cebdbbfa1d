package events

import (
	"time"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAppointmentRequested EventType = "appointment_requested"
	EventAppointmentConfirmed EventType = "appointment_confirmed"
	EventAppointmentRejected  EventType = "appointment_rejected"
)

// Event represents a domain event emitted after a successful appointment
// state transition.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   AppointmentPayload
}

// AppointmentPayload carries the transitioned appointment. Reason is set
// only for rejections.
type AppointmentPayload struct {
	Appointment *domain.Appointment `json:"appointment"`
	Reason      string              `json:"reason,omitempty"`
}
