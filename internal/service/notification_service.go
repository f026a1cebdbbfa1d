package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/cache"
	"github.com/spec-kit/health-records-service/internal/domain"
	"github.com/spec-kit/health-records-service/internal/events"
	"github.com/spec-kit/health-records-service/internal/repository"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// NotificationService owns the notification inbox and the unread-count
// cache. It subscribes to appointment events and turns them into inbox
// entries; those writes are best-effort by construction, since the
// dispatcher never propagates handler errors to the publisher.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	counter       cache.UnreadCounter
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	counter cache.UnreadCounter,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		counter:       counter,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to appointment lifecycle events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventAppointmentRequested, n.handleAppointmentRequested)
	dispatcher.Subscribe(events.EventAppointmentConfirmed, n.handleAppointmentConfirmed)
	dispatcher.Subscribe(events.EventAppointmentRejected, n.handleAppointmentRejected)
}

func (n *NotificationService) handleAppointmentRequested(ctx context.Context, event events.Event) error {
	appointment := event.Payload.Appointment
	patient, err := n.users.GetByID(ctx, appointment.PatientID)
	if err != nil {
		n.logger.Error("appointment-requested notification skipped", zap.Int64("appointment_id", appointment.ID), zap.Error(err))
		return err
	}

	return n.create(ctx, &domain.Notification{
		UserID: appointment.DoctorID,
		Title:  "New Appointment Request",
		Message: fmt.Sprintf("Patient %s has requested an appointment on %s",
			patient.FullName(), appointment.StartsAt.Format("2006-01-02")),
		Type:          domain.NotificationAppointmentRequested,
		AppointmentID: &appointment.ID,
	})
}

func (n *NotificationService) handleAppointmentConfirmed(ctx context.Context, event events.Event) error {
	appointment := event.Payload.Appointment
	doctor, err := n.users.GetByID(ctx, appointment.DoctorID)
	if err != nil {
		n.logger.Error("appointment-confirmed notification skipped", zap.Int64("appointment_id", appointment.ID), zap.Error(err))
		return err
	}

	return n.create(ctx, &domain.Notification{
		UserID: appointment.PatientID,
		Title:  "Appointment Confirmed",
		Message: fmt.Sprintf("Your appointment with Dr. %s on %s has been confirmed",
			doctor.FullName(), appointment.StartsAt.Format("2006-01-02")),
		Type:          domain.NotificationAppointmentConfirmed,
		AppointmentID: &appointment.ID,
	})
}

func (n *NotificationService) handleAppointmentRejected(ctx context.Context, event events.Event) error {
	appointment := event.Payload.Appointment
	doctor, err := n.users.GetByID(ctx, appointment.DoctorID)
	if err != nil {
		n.logger.Error("appointment-rejected notification skipped", zap.Int64("appointment_id", appointment.ID), zap.Error(err))
		return err
	}

	return n.create(ctx, &domain.Notification{
		UserID: appointment.PatientID,
		Title:  "Appointment Rejected",
		Message: fmt.Sprintf("Your appointment with Dr. %s on %s has been rejected. Reason: %s",
			doctor.FullName(), appointment.StartsAt.Format("2006-01-02"), event.Payload.Reason),
		Type:          domain.NotificationAppointmentRejected,
		AppointmentID: &appointment.ID,
	})
}

func (n *NotificationService) create(ctx context.Context, notification *domain.Notification) error {
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error("failed to create notification", zap.Int64("user_id", notification.UserID), zap.Error(err))
		return err
	}
	n.counter.Invalidate(ctx, notification.UserID)
	return nil
}

// ListMine returns the caller's notifications, newest first.
func (n *NotificationService) ListMine(ctx context.Context, caller *domain.User) ([]domain.Notification, error) {
	if caller == nil {
		return nil, apperrors.NewAccessDenied("authentication required")
	}
	return n.notifications.ListByUser(ctx, caller.ID)
}

// ListUnread returns the caller's unread notifications.
func (n *NotificationService) ListUnread(ctx context.Context, caller *domain.User) ([]domain.Notification, error) {
	if caller == nil {
		return nil, apperrors.NewAccessDenied("authentication required")
	}
	return n.notifications.ListUnreadByUser(ctx, caller.ID)
}

// Get fetches one notification, enforcing ownership.
func (n *NotificationService) Get(ctx context.Context, caller *domain.User, id int64) (*domain.Notification, error) {
	notification, err := n.notifications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("notification")
		}
		return nil, err
	}
	if err := auth.CanAccessNotification(caller, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// MarkRead marks one notification read and invalidates the owner's cached
// unread count.
func (n *NotificationService) MarkRead(ctx context.Context, caller *domain.User, id int64) (*domain.Notification, error) {
	notification, err := n.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := n.notifications.MarkRead(ctx, notification.ID); err != nil {
		return nil, err
	}
	notification.Read = true
	n.counter.Invalidate(ctx, notification.UserID)
	return notification, nil
}

// MarkAllRead marks every unread notification of the caller read and
// invalidates the cached count.
func (n *NotificationService) MarkAllRead(ctx context.Context, caller *domain.User) error {
	if caller == nil {
		return apperrors.NewAccessDenied("authentication required")
	}
	if err := n.notifications.MarkAllRead(ctx, caller.ID); err != nil {
		return err
	}
	n.counter.Invalidate(ctx, caller.ID)
	return nil
}

// CountUnread returns the caller's unread count, served from the cache when
// a fresh entry exists and re-queried from the store otherwise.
func (n *NotificationService) CountUnread(ctx context.Context, caller *domain.User) (int64, error) {
	if caller == nil {
		return 0, apperrors.NewAccessDenied("authentication required")
	}
	if count, ok := n.counter.Get(ctx, caller.ID); ok {
		return count, nil
	}

	count, err := n.notifications.CountUnread(ctx, caller.ID)
	if err != nil {
		return 0, err
	}
	n.counter.Put(ctx, caller.ID, count)
	return count, nil
}

// DeleteForAppointment removes every notification referencing the
// appointment and invalidates the affected users' cached counts. Called by
// the appointment service ahead of an appointment delete.
func (n *NotificationService) DeleteForAppointment(ctx context.Context, appointmentID int64) error {
	userIDs, err := n.notifications.DeleteByAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		n.counter.Invalidate(ctx, userID)
	}
	return nil
}
