package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/health-records-service/internal/api/dto"
	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/domain"
	"github.com/spec-kit/health-records-service/internal/service"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// AppointmentsHandler serves the appointment lifecycle endpoints.
type AppointmentsHandler struct {
	service *service.AppointmentService
}

// NewAppointmentsHandler constructs handler.
func NewAppointmentsHandler(appointmentService *service.AppointmentService) *AppointmentsHandler {
	return &AppointmentsHandler{service: appointmentService}
}

// Create POST /api/appointments. Anonymous callers are rejected here; the
// only unauthenticated booking path is CreateSimple.
func (h *AppointmentsHandler) Create(c *fiber.Ctx) error {
	caller, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewAccessDenied("authentication required")
	}
	return h.create(c, caller)
}

// CreateSimple POST /api/appointments/simple. The endpoint bypasses
// authentication, so the caller may be anonymous; the payload then has to
// carry the patient id.
func (h *AppointmentsHandler) CreateSimple(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	return h.create(c, caller)
}

func (h *AppointmentsHandler) create(c *fiber.Ctx, caller *domain.User) error {
	var req dto.AppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	appointment, err := h.service.Create(c.UserContext(), caller, service.AppointmentCreateInput{
		DoctorID:          req.DoctorID,
		PatientID:         req.PatientID,
		Title:             req.Title,
		Description:       req.Description,
		Notes:             req.Notes,
		StartsAt:          req.StartsAt,
		VideoConsultation: req.VideoConsultation,
		MeetingLink:       req.MeetingLink,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAppointmentResponse(appointment))
}

// List GET /api/appointments.
func (h *AppointmentsHandler) List(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	appointments, err := h.service.List(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponses(appointments))
}

// ListMine GET /api/appointments/my.
func (h *AppointmentsHandler) ListMine(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	appointments, err := h.service.ListMine(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponses(appointments))
}

// ListUpcoming GET /api/appointments/upcoming.
func (h *AppointmentsHandler) ListUpcoming(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	appointments, err := h.service.ListUpcoming(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponses(appointments))
}

// ListByDateRange GET /api/appointments/range?start=...&end=...
func (h *AppointmentsHandler) ListByDateRange(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	start, err := parseTimeQuery(c, "start")
	if err != nil {
		return err
	}
	end, err := parseTimeQuery(c, "end")
	if err != nil {
		return err
	}
	if !end.After(start) {
		return apperrors.NewInvalidArgument("end must be after start", nil)
	}
	appointments, err := h.service.ListByDateRange(c.UserContext(), caller, start, end)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponses(appointments))
}

// Get GET /api/appointments/:id.
func (h *AppointmentsHandler) Get(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	appointment, err := h.service.Get(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponse(appointment))
}

// Update PUT /api/appointments/:id.
func (h *AppointmentsHandler) Update(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.AppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}

	appointment, err := h.service.Update(c.UserContext(), caller, id, service.AppointmentUpdateInput{
		DoctorID:          req.DoctorID,
		Title:             req.Title,
		Description:       req.Description,
		Notes:             req.Notes,
		Status:            domain.AppointmentStatus(req.Status),
		StartsAt:          req.StartsAt,
		VideoConsultation: req.VideoConsultation,
		MeetingLink:       req.MeetingLink,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponse(appointment))
}

// Confirm POST /api/appointments/:id/confirm.
func (h *AppointmentsHandler) Confirm(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	appointment, err := h.service.Confirm(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponse(appointment))
}

// Reject POST /api/appointments/:id/reject.
func (h *AppointmentsHandler) Reject(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	appointment, err := h.service.Reject(c.UserContext(), caller, id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponse(appointment))
}

// Cancel POST /api/appointments/:id/cancel.
func (h *AppointmentsHandler) Cancel(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	appointment, err := h.service.Cancel(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAppointmentResponse(appointment))
}

// Delete DELETE /api/appointments/:id.
func (h *AppointmentsHandler) Delete(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), caller, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseTimeQuery(c *fiber.Ctx, name string) (time.Time, error) {
	val := c.Query(name)
	if val == "" {
		return time.Time{}, apperrors.NewInvalidArgument(name+" is required", nil)
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, apperrors.NewInvalidArgument(name+" must be RFC 3339", map[string]any{name: val})
	}
	return t, nil
}
