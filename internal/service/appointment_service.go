package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/domain"
	"github.com/spec-kit/health-records-service/internal/events"
	"github.com/spec-kit/health-records-service/internal/repository"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// notificationPurger removes the notifications tied to an appointment before
// the appointment row itself is deleted. Implemented by NotificationService.
type notificationPurger interface {
	DeleteForAppointment(ctx context.Context, appointmentID int64) error
}

// AppointmentService owns the appointment lifecycle: role-gated creation,
// the PENDING/APPROVED/CANCELLED state machine, and the notification side
// channel fed through the event dispatcher.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	purger       notificationPurger
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// AppointmentCreateInput describes a booking payload.
type AppointmentCreateInput struct {
	DoctorID          int64
	PatientID         int64
	Title             string
	Description       string
	Notes             string
	StartsAt          time.Time
	VideoConsultation bool
	MeetingLink       string
}

// AppointmentUpdateInput describes an update payload. Zero-valued fields are
// still written for doctors and admins; patients may only touch Description
// and request cancellation.
type AppointmentUpdateInput struct {
	DoctorID          int64
	Title             string
	Description       string
	Notes             string
	Status            domain.AppointmentStatus
	StartsAt          time.Time
	VideoConsultation bool
	MeetingLink       string
}

// NewAppointmentService constructs the service.
func NewAppointmentService(
	appointments repository.AppointmentRepository,
	users repository.UserRepository,
	purger notificationPurger,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		users:        users,
		purger:       purger,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// Create books an appointment. Patients self-book and land in PENDING;
// doctors and admins book on behalf of a patient and the appointment is
// approved on creation. A nil caller is an anonymous booking through the
// public endpoint and behaves like a patient booking, with the patient taken
// from the payload.
func (s *AppointmentService) Create(ctx context.Context, caller *domain.User, input AppointmentCreateInput) (*domain.Appointment, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewInvalidArgument("Appointment title is required", map[string]any{"field": "title"})
	}
	if input.StartsAt.IsZero() {
		return nil, apperrors.NewInvalidArgument("Appointment date/time is required", map[string]any{"field": "startsAt"})
	}
	if input.DoctorID == 0 {
		return nil, apperrors.NewInvalidArgument("Doctor is required", map[string]any{"field": "doctorId"})
	}

	doctor, err := s.lookupUser(ctx, input.DoctorID, "doctor")
	if err != nil {
		return nil, err
	}
	if doctor.Role != domain.RoleDoctor {
		return nil, apperrors.NewInvalidArgument("Selected user is not a doctor", map[string]any{"field": "doctorId"})
	}

	var patientID int64
	status := domain.AppointmentStatusPending

	switch {
	case caller == nil || caller.Role == domain.RolePatient:
		if caller != nil {
			patientID = caller.ID
		} else {
			if input.PatientID == 0 {
				return nil, apperrors.NewInvalidArgument("Patient is required", map[string]any{"field": "patientId"})
			}
			patient, err := s.lookupUser(ctx, input.PatientID, "patient")
			if err != nil {
				return nil, err
			}
			if patient.Role != domain.RolePatient {
				return nil, apperrors.NewInvalidArgument("Selected user is not a patient", map[string]any{"field": "patientId"})
			}
			patientID = patient.ID
		}
	case caller.Role == domain.RoleDoctor || caller.Role == domain.RoleAdmin:
		if input.PatientID == 0 {
			return nil, apperrors.NewInvalidArgument("Patient is required", map[string]any{"field": "patientId"})
		}
		patient, err := s.lookupUser(ctx, input.PatientID, "patient")
		if err != nil {
			return nil, err
		}
		if patient.Role != domain.RolePatient {
			return nil, apperrors.NewInvalidArgument("Selected user is not a patient", map[string]any{"field": "patientId"})
		}
		patientID = patient.ID
		status = domain.AppointmentStatusApproved
	default:
		return nil, apperrors.NewAccessDenied("invalid role for this operation")
	}

	appointment := &domain.Appointment{
		PatientID:         patientID,
		DoctorID:          doctor.ID,
		Title:             strings.TrimSpace(input.Title),
		Description:       input.Description,
		Notes:             input.Notes,
		Status:            status,
		StartsAt:          input.StartsAt,
		VideoConsultation: input.VideoConsultation,
		MeetingLink:       input.MeetingLink,
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, err
	}

	if status == domain.AppointmentStatusPending {
		s.publish(ctx, events.EventAppointmentRequested, appointment, "")
	}
	return appointment, nil
}

// Get fetches an appointment, enforcing the ownership gate.
func (s *AppointmentService) Get(ctx context.Context, caller *domain.User, id int64) (*domain.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("appointment")
		}
		return nil, err
	}
	if err := auth.CanViewAppointment(caller, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// List returns every appointment; admins only.
func (s *AppointmentService) List(ctx context.Context, caller *domain.User) ([]domain.Appointment, error) {
	if err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.appointments.List(ctx)
}

// ListMine returns the caller's own appointments, scoped by role.
func (s *AppointmentService) ListMine(ctx context.Context, caller *domain.User) ([]domain.Appointment, error) {
	if caller == nil {
		return nil, apperrors.NewAccessDenied("authentication required")
	}
	switch caller.Role {
	case domain.RoleDoctor:
		return s.appointments.ListByDoctor(ctx, caller.ID)
	case domain.RolePatient:
		return s.appointments.ListByPatient(ctx, caller.ID)
	}
	return nil, apperrors.NewAccessDenied("invalid role for this operation")
}

// ListUpcoming returns the caller's appointments over the next month; admins
// see everyone's.
func (s *AppointmentService) ListUpcoming(ctx context.Context, caller *domain.User) ([]domain.Appointment, error) {
	if caller == nil {
		return nil, apperrors.NewAccessDenied("authentication required")
	}
	now := time.Now()
	end := now.AddDate(0, 1, 0)
	switch caller.Role {
	case domain.RoleDoctor:
		return s.appointments.ListByDoctorAndDateRange(ctx, caller.ID, now, end)
	case domain.RolePatient:
		return s.appointments.ListByPatientAndDateRange(ctx, caller.ID, now, end)
	case domain.RoleAdmin:
		return s.appointments.ListByDateRange(ctx, now, end)
	}
	return nil, apperrors.NewAccessDenied("invalid role for this operation")
}

// ListByDateRange returns appointments in [start, end], role-scoped.
func (s *AppointmentService) ListByDateRange(ctx context.Context, caller *domain.User, start, end time.Time) ([]domain.Appointment, error) {
	if caller == nil {
		return nil, apperrors.NewAccessDenied("authentication required")
	}
	switch caller.Role {
	case domain.RoleAdmin:
		return s.appointments.ListByDateRange(ctx, start, end)
	case domain.RoleDoctor:
		return s.appointments.ListByDoctorAndDateRange(ctx, caller.ID, start, end)
	default:
		return s.appointments.ListByPatientAndDateRange(ctx, caller.ID, start, end)
	}
}

// Update rewrites appointment fields under role restrictions: patients may
// change the description and cancel; doctors and admins may change anything
// that keeps the state machine legal, and only admins may move the
// appointment to another doctor.
func (s *AppointmentService) Update(ctx context.Context, caller *domain.User, id int64, input AppointmentUpdateInput) (*domain.Appointment, error) {
	appointment, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if caller.Role == domain.RolePatient {
		appointment.Description = input.Description
		if input.Status == domain.AppointmentStatusCancelled && appointment.Status != domain.AppointmentStatusCancelled {
			return s.cancel(ctx, appointment, input.Description)
		}
		if err := s.appointments.Update(ctx, appointment); err != nil {
			return nil, err
		}
		return appointment, nil
	}

	fromStatus := appointment.Status
	wantsTransition := input.Status != "" && input.Status != fromStatus
	if wantsTransition && !domain.CanTransition(fromStatus, input.Status) {
		return nil, apperrors.NewIllegalState("illegal status transition")
	}

	if input.DoctorID != 0 && input.DoctorID != appointment.DoctorID {
		if caller.Role != domain.RoleAdmin {
			return nil, apperrors.NewAccessDenied("only administrators can reassign the doctor")
		}
		doctor, err := s.lookupUser(ctx, input.DoctorID, "doctor")
		if err != nil {
			return nil, err
		}
		if doctor.Role != domain.RoleDoctor {
			return nil, apperrors.NewInvalidArgument("Selected user is not a doctor", map[string]any{"field": "doctorId"})
		}
		appointment.DoctorID = doctor.ID
	}

	appointment.Title = input.Title
	appointment.Description = input.Description
	appointment.Notes = input.Notes
	if !input.StartsAt.IsZero() {
		appointment.StartsAt = input.StartsAt
	}
	appointment.VideoConsultation = input.VideoConsultation
	appointment.MeetingLink = input.MeetingLink

	if wantsTransition {
		// Conditional on the status read above, so a transition that raced
		// this update loses instead of overwriting a terminal row.
		ok, err := s.appointments.TransitionStatus(ctx, appointment.ID, fromStatus, input.Status, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewIllegalState("illegal status transition")
		}
		appointment.Status = input.Status
	}

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Confirm moves a PENDING appointment to APPROVED. The write is conditional
// on the row still being PENDING, so of N concurrent confirms exactly one
// succeeds and the rest fail with an illegal-state error. Exactly one
// notification goes to the patient.
func (s *AppointmentService) Confirm(ctx context.Context, caller *domain.User, id int64) (*domain.Appointment, error) {
	appointment, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanDecideAppointment(caller, appointment); err != nil {
		return nil, err
	}
	if appointment.Status != domain.AppointmentStatusPending {
		return nil, apperrors.NewIllegalState("Only pending appointments can be confirmed")
	}

	ok, err := s.appointments.TransitionStatus(ctx, appointment.ID, domain.AppointmentStatusPending, domain.AppointmentStatusApproved, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewIllegalState("Only pending appointments can be confirmed")
	}
	appointment.Status = domain.AppointmentStatusApproved

	s.publish(ctx, events.EventAppointmentConfirmed, appointment, "")
	return appointment, nil
}

// Reject moves a PENDING appointment to CANCELLED, recording the reason in
// the notes. Exactly one notification goes to the patient.
func (s *AppointmentService) Reject(ctx context.Context, caller *domain.User, id int64, reason string) (*domain.Appointment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewInvalidArgument("Rejection reason is required", map[string]any{"field": "reason"})
	}

	appointment, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanDecideAppointment(caller, appointment); err != nil {
		return nil, err
	}
	if appointment.Status != domain.AppointmentStatusPending {
		return nil, apperrors.NewIllegalState("Only pending appointments can be rejected")
	}

	notes := "Rejection reason: " + reason
	if appointment.Notes != "" {
		notes = appointment.Notes + "\n\n" + notes
	}

	ok, err := s.appointments.TransitionStatus(ctx, appointment.ID, domain.AppointmentStatusPending, domain.AppointmentStatusCancelled, &notes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewIllegalState("Only pending appointments can be rejected")
	}
	appointment.Status = domain.AppointmentStatusCancelled
	appointment.Notes = notes

	s.publish(ctx, events.EventAppointmentRejected, appointment, reason)
	return appointment, nil
}

// Cancel moves any non-terminal appointment to CANCELLED. The owning
// patient, the doctor and admins may cancel.
func (s *AppointmentService) Cancel(ctx context.Context, caller *domain.User, id int64) (*domain.Appointment, error) {
	appointment, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, appointment, "")
}

func (s *AppointmentService) cancel(ctx context.Context, appointment *domain.Appointment, description string) (*domain.Appointment, error) {
	if domain.Terminal(appointment.Status) {
		return nil, apperrors.NewIllegalState("appointment is already cancelled")
	}

	ok, err := s.appointments.TransitionStatus(ctx, appointment.ID, appointment.Status, domain.AppointmentStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewIllegalState("appointment is already cancelled")
	}
	appointment.Status = domain.AppointmentStatusCancelled
	if description != "" {
		appointment.Description = description
		if err := s.appointments.Update(ctx, appointment); err != nil {
			return nil, err
		}
	}
	return appointment, nil
}

// Delete removes an appointment. Related notifications go first so no
// foreign key is left dangling; their deletion is best-effort and never
// blocks the appointment delete.
func (s *AppointmentService) Delete(ctx context.Context, caller *domain.User, id int64) error {
	appointment, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := auth.CanDeleteAppointment(caller, appointment); err != nil {
		return err
	}

	if err := s.purger.DeleteForAppointment(ctx, appointment.ID); err != nil {
		s.logger.Error("failed to delete notifications for appointment",
			zap.Int64("appointment_id", appointment.ID), zap.Error(err))
	}

	if err := s.appointments.Delete(ctx, appointment.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("appointment")
		}
		return err
	}
	return nil
}

func (s *AppointmentService) lookupUser(ctx context.Context, id int64, resource string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(resource)
		}
		return nil, err
	}
	return user, nil
}

func (s *AppointmentService) publish(ctx context.Context, eventType events.EventType, appointment *domain.Appointment, reason string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload: events.AppointmentPayload{
			Appointment: appointment,
			Reason:      reason,
		},
	})
}
