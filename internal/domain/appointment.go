package domain

import "time"

// AppointmentStatus enumerates lifecycle states for appointments.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusApproved  AppointmentStatus = "APPROVED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// Appointment is the aggregate for a scheduled visit. It always references
// exactly one doctor and one patient.
type Appointment struct {
	ID                int64
	PatientID         int64
	DoctorID          int64
	Title             string
	Description       string
	Notes             string
	Status            AppointmentStatus
	StartsAt          time.Time
	VideoConsultation bool
	MeetingLink       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusApproved, AppointmentStatusCancelled},
	AppointmentStatusApproved:  {AppointmentStatusCancelled},
	AppointmentStatusCancelled: {},
}

// CanTransition reports whether moving from current to next is a legal edge
// of the appointment state machine. CANCELLED is terminal.
func CanTransition(current, next AppointmentStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no edges leave the given status.
func Terminal(status AppointmentStatus) bool {
	return len(allowedTransitions[status]) == 0
}
