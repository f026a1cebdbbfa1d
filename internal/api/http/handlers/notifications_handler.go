package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/health-records-service/internal/api/dto"
	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/service"
)

// NotificationsHandler serves the caller's notification inbox.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /api/notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	notifications, err := h.service.ListMine(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNotificationResponses(notifications))
}

// ListUnread GET /api/notifications/unread.
func (h *NotificationsHandler) ListUnread(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	notifications, err := h.service.ListUnread(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNotificationResponses(notifications))
}

// CountUnread GET /api/notifications/count.
func (h *NotificationsHandler) CountUnread(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	count, err := h.service.CountUnread(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": count})
}

// Get GET /api/notifications/:id.
func (h *NotificationsHandler) Get(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	notification, err := h.service.Get(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNotificationResponse(notification))
}

// MarkRead PUT /api/notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	notification, err := h.service.MarkRead(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNotificationResponse(notification))
}

// MarkAllRead PUT /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	if err := h.service.MarkAllRead(c.UserContext(), caller); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
