package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/health-records-service/internal/api/dto"
	"github.com/spec-kit/health-records-service/internal/service"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// UsersHandler serves user administration and the directory listings.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// List GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponses(users))
}

// ListDoctors GET /api/users/doctors.
func (h *UsersHandler) ListDoctors(c *fiber.Ctx) error {
	doctors, err := h.service.ListDoctors(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponses(doctors))
}

// ListPatients GET /api/users/patients.
func (h *UsersHandler) ListPatients(c *fiber.Ctx) error {
	patients, err := h.service.ListPatients(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponses(patients))
}

// Get GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Create POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	user, err := h.service.Create(c.UserContext(), userInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Update PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	user, err := h.service.Update(c.UserContext(), id, userInput(req))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func userInput(req dto.UserRequest) service.UserInput {
	return service.UserInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		PhoneNumber:    req.PhoneNumber,
		Address:        req.Address,
		Specialization: req.Specialization,
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidArgument("invalid id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}
