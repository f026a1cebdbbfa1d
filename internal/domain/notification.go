package domain

import "time"

// NotificationType enumerates supported notification kinds.
type NotificationType string

const (
	NotificationAppointmentRequested NotificationType = "APPOINTMENT_REQUESTED"
	NotificationAppointmentConfirmed NotificationType = "APPOINTMENT_CONFIRMED"
	NotificationAppointmentRejected  NotificationType = "APPOINTMENT_REJECTED"
)

// Notification is an inbox entry owned by exactly one user, optionally tied
// to the appointment that produced it.
type Notification struct {
	ID            int64
	UserID        int64
	Title         string
	Message       string
	Type          NotificationType
	Read          bool
	AppointmentID *int64
	CreatedAt     time.Time
}
