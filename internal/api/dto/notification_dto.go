package dto

import (
	"time"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// NotificationResponse is the wire shape for a notification.
type NotificationResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Type          string    `json:"type"`
	Read          bool      `json:"isRead"`
	AppointmentID *int64    `json:"appointmentId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewNotificationResponse maps a domain notification to its wire shape.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		UserID:        n.UserID,
		Title:         n.Title,
		Message:       n.Message,
		Type:          string(n.Type),
		Read:          n.Read,
		AppointmentID: n.AppointmentID,
		CreatedAt:     n.CreatedAt,
	}
}

// NewNotificationResponses maps a slice of domain notifications.
func NewNotificationResponses(notifications []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(notifications))
	for i := range notifications {
		out = append(out, NewNotificationResponse(&notifications[i]))
	}
	return out
}
