package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/health-records-service/internal/domain"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// The policy layer is deterministic and side-effect-free: decisions depend
// only on the caller and the resource's owning ids. A nil user is an
// anonymous caller and is denied everything here.

// RequireRole checks the caller's role against an allowed set.
func RequireRole(user *domain.User, allowed ...domain.Role) error {
	if user == nil {
		return apperrors.NewAccessDenied("authentication required")
	}
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	return apperrors.NewAccessDenied("insufficient role")
}

// CanViewAppointment applies the ownership gate for reads: admins see any
// appointment, doctors and patients only their own side of it.
func CanViewAppointment(user *domain.User, appointment *domain.Appointment) error {
	if user == nil {
		return apperrors.NewAccessDenied("authentication required")
	}
	switch user.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleDoctor:
		if appointment.DoctorID == user.ID {
			return nil
		}
	case domain.RolePatient:
		if appointment.PatientID == user.ID {
			return nil
		}
	}
	return apperrors.NewAccessDenied("you don't have permission to access this appointment")
}

// CanDeleteAppointment denies patients unconditionally, ownership
// notwithstanding; doctors and admins follow the view rules.
func CanDeleteAppointment(user *domain.User, appointment *domain.Appointment) error {
	if err := CanViewAppointment(user, appointment); err != nil {
		return err
	}
	if user.Role == domain.RolePatient {
		return apperrors.NewAccessDenied("patients cannot delete appointments")
	}
	return nil
}

// CanDecideAppointment gates confirm and reject: patients are always denied.
func CanDecideAppointment(user *domain.User, appointment *domain.Appointment) error {
	if err := CanViewAppointment(user, appointment); err != nil {
		return err
	}
	if user.Role == domain.RolePatient {
		return apperrors.NewAccessDenied("patients cannot confirm or reject appointments")
	}
	return nil
}

// CanViewMedicalRecord follows the same ownership gate as appointments:
// admins see any record, doctors and patients only their own side.
func CanViewMedicalRecord(user *domain.User, record *domain.MedicalRecord) error {
	if user == nil {
		return apperrors.NewAccessDenied("authentication required")
	}
	switch user.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleDoctor:
		if record.DoctorID == user.ID {
			return nil
		}
	case domain.RolePatient:
		if record.PatientID == user.ID {
			return nil
		}
	}
	return apperrors.NewAccessDenied("you don't have permission to access this medical record")
}

// CanViewLabReport applies the ownership gate for lab reports.
func CanViewLabReport(user *domain.User, report *domain.LabReport) error {
	if user == nil {
		return apperrors.NewAccessDenied("authentication required")
	}
	switch user.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleDoctor:
		if report.DoctorID == user.ID {
			return nil
		}
	case domain.RolePatient:
		if report.PatientID == user.ID {
			return nil
		}
	}
	return apperrors.NewAccessDenied("you don't have permission to access this lab report")
}

// CanAccessNotification requires the caller to own the notification. No role
// escapes this; admins get no blanket access.
func CanAccessNotification(user *domain.User, notification *domain.Notification) error {
	if user == nil {
		return apperrors.NewAccessDenied("authentication required")
	}
	if notification.UserID != user.ID {
		return apperrors.NewAccessDenied("you don't have permission to access this notification")
	}
	return nil
}

// RequireRoles builds a route-level role guard for the administration
// endpoints that are gated by role alone.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apperrors.NewAccessDenied("authentication required")
		}
		if err := RequireRole(user, allowed...); err != nil {
			return err
		}
		return c.Next()
	}
}
