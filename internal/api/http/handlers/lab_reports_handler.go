package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/health-records-service/internal/api/dto"
	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/service"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// LabReportsHandler serves the lab report endpoints, including result file
// upload and download.
type LabReportsHandler struct {
	service *service.LabReportService
}

// NewLabReportsHandler constructs handler.
func NewLabReportsHandler(labReportService *service.LabReportService) *LabReportsHandler {
	return &LabReportsHandler{service: labReportService}
}

func labReportInput(req dto.LabReportRequest) service.LabReportInput {
	return service.LabReportInput{
		MedicalRecordID: req.MedicalRecordID,
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		TestName:        req.TestName,
		TestResults:     req.TestResults,
		TestDate:        req.TestDate,
		ReportDate:      req.ReportDate,
	}
}

// Create POST /api/lab-reports.
func (h *LabReportsHandler) Create(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	var req dto.LabReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	report, err := h.service.Create(c.UserContext(), caller, labReportInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewLabReportResponse(report))
}

// List GET /api/lab-reports.
func (h *LabReportsHandler) List(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	reports, err := h.service.List(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewLabReportResponses(reports))
}

// ListMine GET /api/lab-reports/my.
func (h *LabReportsHandler) ListMine(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	reports, err := h.service.ListMine(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewLabReportResponses(reports))
}

// ListByPatient GET /api/lab-reports/patient/:id.
func (h *LabReportsHandler) ListByPatient(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	reports, err := h.service.ListByPatient(c.UserContext(), caller, patientID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewLabReportResponses(reports))
}

// Get GET /api/lab-reports/:id.
func (h *LabReportsHandler) Get(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	report, err := h.service.Get(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewLabReportResponse(report))
}

// Update PUT /api/lab-reports/:id.
func (h *LabReportsHandler) Update(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.LabReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	report, err := h.service.Update(c.UserContext(), caller, id, labReportInput(req))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewLabReportResponse(report))
}

// AttachFile POST /api/lab-reports/:id/file. The result file travels as the
// "file" part of a multipart form.
func (h *LabReportsHandler) AttachFile(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewInvalidArgument("A file is required", map[string]any{"field": "file"})
	}
	report, err := h.service.AttachFile(c.UserContext(), caller, id, header)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewLabReportResponse(report))
}

// Download GET /api/lab-reports/:id/download.
func (h *LabReportsHandler) Download(c *fiber.Ctx) error {
	caller, _ := auth.CurrentUser(c)
	id, err := parseID(c)
	if err != nil {
		return err
	}
	report, path, err := h.service.Download(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return c.Download(path, report.FileName)
}

// Delete DELETE /api/lab-reports/:id.
func (h *LabReportsHandler) Delete(c *fiber.Ctx) error {
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
