package dto

import (
	"time"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// AppointmentRequest is the booking/update payload. PatientID is ignored for
// patient callers, who always book for themselves.
type AppointmentRequest struct {
	DoctorID          int64     `json:"doctorId"`
	PatientID         int64     `json:"patientId,omitempty"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Status            string    `json:"status,omitempty"`
	StartsAt          time.Time `json:"appointmentDateTime"`
	VideoConsultation bool      `json:"isVideoConsultation,omitempty"`
	MeetingLink       string    `json:"meetingLink,omitempty"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// AppointmentResponse is the wire shape for an appointment.
type AppointmentResponse struct {
	ID                int64     `json:"id"`
	PatientID         int64     `json:"patientId"`
	DoctorID          int64     `json:"doctorId"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Status            string    `json:"status"`
	StartsAt          time.Time `json:"appointmentDateTime"`
	VideoConsultation bool      `json:"isVideoConsultation"`
	MeetingLink       string    `json:"meetingLink,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewAppointmentResponse maps a domain appointment to its wire shape.
func NewAppointmentResponse(a *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                a.ID,
		PatientID:         a.PatientID,
		DoctorID:          a.DoctorID,
		Title:             a.Title,
		Description:       a.Description,
		Notes:             a.Notes,
		Status:            string(a.Status),
		StartsAt:          a.StartsAt,
		VideoConsultation: a.VideoConsultation,
		MeetingLink:       a.MeetingLink,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// NewAppointmentResponses maps a slice of domain appointments.
func NewAppointmentResponses(appointments []domain.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		out = append(out, NewAppointmentResponse(&appointments[i]))
	}
	return out
}
