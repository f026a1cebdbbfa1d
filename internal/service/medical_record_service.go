package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/domain"
	"github.com/spec-kit/health-records-service/internal/repository"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// MedicalRecordService owns the clinical record aggregate. Only doctors and
// admins write records; reads follow the ownership gate, so a patient sees
// their own history and a doctor the records they authored.
type MedicalRecordService struct {
	records repository.MedicalRecordRepository
	users   repository.UserRepository
	logger  *zap.Logger
}

// PrescriptionInput is one medication line on a record payload.
type PrescriptionInput struct {
	MedicationName string
	Dosage         string
	Instructions   string
	StartDate      *time.Time
	EndDate        *time.Time
}

// MedicalRecordInput describes a create or update payload. On update the
// prescription lines replace the existing ones wholesale.
type MedicalRecordInput struct {
	PatientID     int64
	DoctorID      int64
	Diagnosis     string
	Treatment     string
	Notes         string
	Prescriptions []PrescriptionInput
}

// NewMedicalRecordService constructs the service.
func NewMedicalRecordService(
	records repository.MedicalRecordRepository,
	users repository.UserRepository,
	logger *zap.Logger,
) *MedicalRecordService {
	return &MedicalRecordService{records: records, users: users, logger: logger}
}

// Create writes a new medical record. Doctors author records under their own
// id; admins must name the authoring doctor in the payload.
func (s *MedicalRecordService) Create(ctx context.Context, caller *domain.User, input MedicalRecordInput) (*domain.MedicalRecord, error) {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	doctorID, err := s.resolveDoctor(ctx, caller, input.DoctorID)
	if err != nil {
		return nil, err
	}
	patient, err := s.validatePatient(ctx, input.PatientID)
	if err != nil {
		return nil, err
	}
	prescriptions, err := buildPrescriptions(input.Prescriptions)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Diagnosis) == "" {
		return nil, apperrors.NewInvalidArgument("Diagnosis is required", map[string]any{"field": "diagnosis"})
	}

	record := &domain.MedicalRecord{
		PatientID:     patient.ID,
		DoctorID:      doctorID,
		Diagnosis:     strings.TrimSpace(input.Diagnosis),
		Treatment:     input.Treatment,
		Notes:         input.Notes,
		Prescriptions: prescriptions,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Get fetches one record with its prescriptions, enforcing ownership.
func (s *MedicalRecordService) Get(ctx context.Context, caller *domain.User, id int64) (*domain.MedicalRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("medical record")
		}
		return nil, err
	}
	if err := auth.CanViewMedicalRecord(caller, record); err != nil {
		return nil, err
	}
	return record, nil
}

// List returns every record; admins only.
func (s *MedicalRecordService) List(ctx context.Context, caller *domain.User) ([]domain.MedicalRecord, error) {
	if err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.records.List(ctx)
}

// ListMine returns the caller's own records, scoped by role.
func (s *MedicalRecordService) ListMine(ctx context.Context, caller *domain.User) ([]domain.MedicalRecord, error) {
	if caller == nil {
		return nil, apperrors.NewAccessDenied("authentication required")
	}
	switch caller.Role {
	case domain.RoleDoctor:
		return s.records.ListByDoctor(ctx, caller.ID)
	case domain.RolePatient:
		return s.records.ListByPatient(ctx, caller.ID)
	}
	return nil, apperrors.NewAccessDenied("invalid role for this operation")
}

// ListByPatient returns one patient's records; doctors and admins only. The
// patient must exist.
func (s *MedicalRecordService) ListByPatient(ctx context.Context, caller *domain.User, patientID int64) ([]domain.MedicalRecord, error) {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, patientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient")
		}
		return nil, err
	}
	return s.records.ListByPatient(ctx, patientID)
}

// Update rewrites a record's clinical fields and replaces its prescription
// lines. The patient and authoring doctor never change.
func (s *MedicalRecordService) Update(ctx context.Context, caller *domain.User, id int64, input MedicalRecordInput) (*domain.MedicalRecord, error) {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	record, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Diagnosis) == "" {
		return nil, apperrors.NewInvalidArgument("Diagnosis is required", map[string]any{"field": "diagnosis"})
	}
	prescriptions, err := buildPrescriptions(input.Prescriptions)
	if err != nil {
		return nil, err
	}

	record.Diagnosis = strings.TrimSpace(input.Diagnosis)
	record.Treatment = input.Treatment
	record.Notes = input.Notes
	record.Prescriptions = prescriptions

	if err := s.records.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record and, through the schema, its prescription lines;
// attached lab reports survive with the record reference cleared.
func (s *MedicalRecordService) Delete(ctx context.Context, caller *domain.User, id int64) error {
	if err := auth.RequireRole(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return err
	}
	record, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, record.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("medical record")
		}
		return err
	}
	return nil
}

func (s *MedicalRecordService) resolveDoctor(ctx context.Context, caller *domain.User, doctorID int64) (int64, error) {
	if caller.Role == domain.RoleDoctor {
		return caller.ID, nil
	}
	if doctorID == 0 {
		return 0, apperrors.NewInvalidArgument("Doctor is required", map[string]any{"field": "doctorId"})
	}
	doctor, err := s.users.GetByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NewNotFound("doctor")
		}
		return 0, err
	}
	if doctor.Role != domain.RoleDoctor {
		return 0, apperrors.NewInvalidArgument("Selected user is not a doctor", map[string]any{"field": "doctorId"})
	}
	return doctor.ID, nil
}

func (s *MedicalRecordService) validatePatient(ctx context.Context, patientID int64) (*domain.User, error) {
	if patientID == 0 {
		return nil, apperrors.NewInvalidArgument("Patient is required", map[string]any{"field": "patientId"})
	}
	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("patient")
		}
		return nil, err
	}
	if patient.Role != domain.RolePatient {
		return nil, apperrors.NewInvalidArgument("Selected user is not a patient", map[string]any{"field": "patientId"})
	}
	return patient, nil
}

func buildPrescriptions(inputs []PrescriptionInput) ([]domain.Prescription, error) {
	prescriptions := make([]domain.Prescription, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.MedicationName) == "" {
			return nil, apperrors.NewInvalidArgument("Medication name is required", map[string]any{"field": "medicationName"})
		}
		prescriptions = append(prescriptions, domain.Prescription{
			MedicationName: strings.TrimSpace(in.MedicationName),
			Dosage:         in.Dosage,
			Instructions:   in.Instructions,
			StartDate:      in.StartDate,
			EndDate:        in.EndDate,
		})
	}
	return prescriptions, nil
}
