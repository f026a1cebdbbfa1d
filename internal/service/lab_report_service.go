package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/domain"
	"github.com/spec-kit/health-records-service/internal/repository"
	"github.com/spec-kit/health-records-service/internal/storage"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

const maxTestNameLength = 100

// labReportFiles is the slice of the file store the service needs.
// Implemented by storage.FileStore.
type labReportFiles interface {
	Save(header *multipart.FileHeader) (storage.StoredFile, error)
	Remove(path string) error
	Resolve(path string) string
}

// LabReportService owns lab reports and their uploaded result files. Writes
// are restricted to doctors and admins; reads follow the ownership gate. A
// report row always outlives its file: file cleanup is best-effort and never
// blocks a delete.
type LabReportService struct {
	reports repository.LabReportRepository
	records repository.MedicalRecordRepository
	users   repository.UserRepository
	files   labReportFiles
	logger  *zap.Logger
}

// LabReportInput describes a create or update payload. On update, zero-valued
// fields keep the stored value.
type LabReportInput struct {
	MedicalRecordID *int64
	PatientID       int64
	DoctorID        int64
	TestName        string
	TestResults     string
	TestDate        time.Time
	ReportDate      time.Time
}

// NewLabReportService constructs the service.
func NewLabReportService(
	reports repository.LabReportRepository,
	records repository.MedicalRecordRepository,
	users repository.UserRepository,
	files labReportFiles,
	logger *zap.Logger,
) *LabReportService {
	return &LabReportService{
		reports: reports,
		records: records,
		users:   users,
		files:   files,
		logger:  logger,
	}
}

// Create writes a new lab report. Doctors author reports under their own id;
// admins must name the doctor. The report date defaults to now when omitted.
func (s *LabReportService) Create(ctx context.Context, caller *domain.User, input LabReportInput) (*domain.LabReport, error) {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	testName, err := validateTestName(input.TestName)
	if err != nil {
		return nil, err
	}
	if input.TestDate.IsZero() {
		return nil, apperrors.NewInvalidArgument("Test date is required", map[string]any{"field": "testDate"})
	}

	doctorID := caller.ID
	if caller.Role == domain.RoleAdmin {
		doctor, err := s.lookupRole(ctx, input.DoctorID, domain.RoleDoctor, "doctor", "doctorId")
		if err != nil {
			return nil, err
		}
		doctorID = doctor.ID
	}
	patient, err := s.lookupRole(ctx, input.PatientID, domain.RolePatient, "patient", "patientId")
	if err != nil {
		return nil, err
	}
	if err := s.validateRecordRef(ctx, input.MedicalRecordID); err != nil {
		return nil, err
	}

	reportDate := input.ReportDate
	if reportDate.IsZero() {
		reportDate = time.Now()
	}

	report := &domain.LabReport{
		MedicalRecordID: input.MedicalRecordID,
		PatientID:       patient.ID,
		DoctorID:        doctorID,
		TestName:        testName,
		TestResults:     input.TestResults,
		TestDate:        input.TestDate,
		ReportDate:      reportDate,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Get fetches one report, enforcing ownership.
func (s *LabReportService) Get(ctx context.Context, caller *domain.User, id int64) (*domain.LabReport, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lab report")
		}
		return nil, err
	}
	if err := auth.CanViewLabReport(caller, report); err != nil {
		return nil, err
	}
	return report, nil
}

// List returns every report; admins only.
func (s *LabReportService) List(ctx context.Context, caller *domain.User) ([]domain.LabReport, error) {
	if err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.reports.List(ctx)
}

// ListMine returns the caller's own reports, scoped by role.
func (s *LabReportService) ListMine(ctx context.Context, caller *domain.User) ([]domain.LabReport, error) {
	if caller == nil {
		return nil, apperrors.NewAccessDenied("authentication required")
	}
	switch caller.Role {
	case domain.RoleDoctor:
		return s.reports.ListByDoctor(ctx, caller.ID)
	case domain.RolePatient:
		return s.reports.ListByPatient(ctx, caller.ID)
	}
	return nil, apperrors.NewAccessDenied("invalid role for this operation")
}

// ListByPatient returns one patient's reports; doctors and admins only. The
// patient must exist.
func (s *LabReportService) ListByPatient(ctx context.Context, caller *domain.User, patientID int64) ([]domain.LabReport, error) {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, patientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient")
		}
		return nil, err
	}
	return s.reports.ListByPatient(ctx, patientID)
}

// Update rewrites a report's fields; zero-valued fields keep the stored
// value. The patient and doctor never change, and files move only through
// AttachFile.
func (s *LabReportService) Update(ctx context.Context, caller *domain.User, id int64, input LabReportInput) (*domain.LabReport, error) {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	report, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if input.TestName != "" {
		testName, err := validateTestName(input.TestName)
		if err != nil {
			return nil, err
		}
		report.TestName = testName
	}
	if input.TestResults != "" {
		report.TestResults = input.TestResults
	}
	if !input.TestDate.IsZero() {
		report.TestDate = input.TestDate
	}
	if !input.ReportDate.IsZero() {
		report.ReportDate = input.ReportDate
	}
	if input.MedicalRecordID != nil {
		if err := s.validateRecordRef(ctx, input.MedicalRecordID); err != nil {
			return nil, err
		}
		report.MedicalRecordID = input.MedicalRecordID
	}

	if err := s.reports.Update(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// AttachFile stores an uploaded result file on the report, replacing any
// previous one. Removing the replaced file is best-effort; the new file wins
// either way.
func (s *LabReportService) AttachFile(ctx context.Context, caller *domain.User, id int64, header *multipart.FileHeader) (*domain.LabReport, error) {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	report, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, apperrors.NewInvalidArgument("A file is required", map[string]any{"field": "file"})
	}

	stored, err := s.files.Save(header)
	if err != nil {
		return nil, err
	}
	if report.HasFile() {
		if err := s.files.Remove(report.FilePath); err != nil {
			s.logger.Error("failed to remove replaced lab report file",
				zap.Int64("lab_report_id", report.ID), zap.String("path", report.FilePath), zap.Error(err))
		}
	}

	report.FilePath = stored.Path
	report.FileName = stored.Name
	report.FileType = stored.ContentType
	report.FileSize = stored.Size

	if err := s.reports.Update(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Download resolves the report's stored file for serving. A report without a
// file is a not-found, not an empty download.
func (s *LabReportService) Download(ctx context.Context, caller *domain.User, id int64) (*domain.LabReport, string, error) {
	report, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, "", err
	}
	if !report.HasFile() {
		return nil, "", apperrors.NewNotFound("file for this lab report")
	}
	return report, s.files.Resolve(report.FilePath), nil
}

// Delete removes a report. Its stored file goes first, best-effort: a failed
// file removal is logged and the row is deleted regardless.
func (s *LabReportService) Delete(ctx context.Context, caller *domain.User, id int64) error {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return err
	}
	report, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}

	if report.HasFile() {
		if err := s.files.Remove(report.FilePath); err != nil {
			s.logger.Error("failed to remove lab report file",
				zap.Int64("lab_report_id", report.ID), zap.String("path", report.FilePath), zap.Error(err))
		}
	}

	if err := s.reports.Delete(ctx, report.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("lab report")
		}
		return err
	}
	return nil
}

func (s *LabReportService) validateRecordRef(ctx context.Context, recordID *int64) error {
	if recordID == nil {
		return nil
	}
	if _, err := s.records.GetByID(ctx, *recordID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("medical record")
		}
		return err
	}
	return nil
}

func (s *LabReportService) lookupRole(ctx context.Context, id int64, role domain.Role, resource, field string) (*domain.User, error) {
	if id == 0 {
		return nil, apperrors.NewInvalidArgument("A "+resource+" is required", map[string]any{"field": field})
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(resource)
		}
		return nil, err
	}
	if user.Role != role {
		return nil, apperrors.NewInvalidArgument("Selected user is not a "+resource, map[string]any{"field": field})
	}
	return user, nil
}

func validateTestName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apperrors.NewInvalidArgument("Test name is required", map[string]any{"field": "testName"})
	}
	if len(trimmed) > maxTestNameLength {
		return "", apperrors.NewInvalidArgument("Test name must not exceed 100 characters", map[string]any{"field": "testName"})
	}
	return trimmed, nil
}
