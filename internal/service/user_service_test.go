package service

import (
	"context"
	"testing"

	"github.com/spec-kit/health-records-service/internal/domain"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

func TestUserServiceCreate(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users, 4)
	ctx := context.Background()

	user, err := svc.Create(ctx, UserInput{
		FirstName: "Greg", LastName: "House",
		Email: "house@example.com", Password: "secret123",
		Role: "DOCTOR", Specialization: "Diagnostics",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.Role != domain.RoleDoctor {
		t.Fatalf("role = %q; want %q", user.Role, domain.RoleDoctor)
	}
	if user.PasswordHash == "secret123" {
		t.Fatal("password stored in the clear")
	}

	if _, err := svc.Create(ctx, UserInput{
		FirstName: "Other", LastName: "Person",
		Email: "house@example.com", Password: "secret123", Role: "PATIENT",
	}); !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("duplicate email: %v", err)
	}

	if _, err := svc.Create(ctx, UserInput{
		Email: "x@example.com", Password: "secret123", Role: "NURSE",
	}); !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("unknown role: %v", err)
	}
}

func TestUserServiceUpdateKeepsPassword(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users, 4)
	ctx := context.Background()

	user, err := svc.Create(ctx, UserInput{
		FirstName: "Jane", LastName: "Doe",
		Email: "jane@example.com", Password: "secret123", Role: "PATIENT",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	originalHash := user.PasswordHash

	updated, err := svc.Update(ctx, user.ID, UserInput{
		FirstName: "Jane", LastName: "Smith",
		Email: "jane@example.com", Role: "PATIENT",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.LastName != "Smith" {
		t.Fatalf("last name = %q", updated.LastName)
	}
	if updated.PasswordHash != originalHash {
		t.Fatal("password re-hashed although none was provided")
	}

	rehashed, err := svc.Update(ctx, user.ID, UserInput{
		FirstName: "Jane", LastName: "Smith",
		Email: "jane@example.com", Role: "PATIENT", Password: "newsecret",
	})
	if err != nil {
		t.Fatalf("Update with password: %v", err)
	}
	if rehashed.PasswordHash == originalHash {
		t.Fatal("password hash unchanged after new password")
	}
}

func TestUserServiceListByRole(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users, 4)
	ctx := context.Background()

	users.add(domain.User{Email: "d1@example.com", Role: domain.RoleDoctor})
	users.add(domain.User{Email: "d2@example.com", Role: domain.RoleDoctor})
	users.add(domain.User{Email: "p1@example.com", Role: domain.RolePatient})

	doctors, err := svc.ListDoctors(ctx)
	if err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
	if len(doctors) != 2 {
		t.Fatalf("doctors = %d; want 2", len(doctors))
	}
	patients, err := svc.ListPatients(ctx)
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if len(patients) != 1 {
		t.Fatalf("patients = %d; want 1", len(patients))
	}
}

func TestUserServiceDeleteMissing(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), 4)
	if err := svc.Delete(context.Background(), 9999); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("delete missing: %v", err)
	}
}
