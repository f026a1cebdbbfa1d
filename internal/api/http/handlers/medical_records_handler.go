package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/health-records-service/internal/api/dto"
	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/service"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// MedicalRecordsHandler serves the clinical record endpoints.
type MedicalRecordsHandler struct {
	service *service.MedicalRecordService
}

// NewMedicalRecordsHandler constructs handler.
func NewMedicalRecordsHandler(recordService *service.MedicalRecordService) *MedicalRecordsHandler {
	return &MedicalRecordsHandler{service: recordService}
}

func medicalRecordInput(req dto.MedicalRecordRequest) service.MedicalRecordInput {
	prescriptions := make([]service.PrescriptionInput, 0, len(req.Prescriptions))
	for _, p := range req.Prescriptions {
		prescriptions = append(prescriptions, service.PrescriptionInput{
			MedicationName: p.MedicationName,
			Dosage:         p.Dosage,
			Instructions:   p.Instructions,
			StartDate:      p.StartDate,
			EndDate:        p.EndDate,
		})
	}
	return service.MedicalRecordInput{
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		Notes:         req.Notes,
		Prescriptions: prescriptions,
	}
}

// Create POST /api/medical-records.
func (h *MedicalRecordsHandler) Create(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	var req dto.MedicalRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	record, err := h.service.Create(c.UserContext(), caller, medicalRecordInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMedicalRecordResponse(record))
}

// List GET /api/medical-records.
func (h *MedicalRecordsHandler) List(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	records, err := h.service.List(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMedicalRecordResponses(records))
}

// ListMine GET /api/medical-records/my.
func (h *MedicalRecordsHandler) ListMine(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	records, err := h.service.ListMine(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMedicalRecordResponses(records))
}

// ListByPatient GET /api/medical-records/patient/:id.
func (h *MedicalRecordsHandler) ListByPatient(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	records, err := h.service.ListByPatient(c.UserContext(), caller, patientID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMedicalRecordResponses(records))
}

// Get GET /api/medical-records/:id.
func (h *MedicalRecordsHandler) Get(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	record, err := h.service.Get(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMedicalRecordResponse(record))
}

// Update PUT /api/medical-records/:id.
func (h *MedicalRecordsHandler) Update(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.MedicalRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	record, err := h.service.Update(c.UserContext(), caller, id, medicalRecordInput(req))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMedicalRecordResponse(record))
}

// Delete DELETE /api/medical-records/:id.
func (h *MedicalRecordsHandler) Delete(c *fiber.Ctx) error {
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
