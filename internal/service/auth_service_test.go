package service

import (
	"context"
	"testing"

	"github.com/spec-kit/health-records-service/internal/config"
	"github.com/spec-kit/health-records-service/internal/domain"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

func newAuthService() (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	cfg := config.AuthConfig{
		JWTSecret:             "auth-test-secret",
		AccessTokenTTLMinutes: 30,
		BcryptCost:            4,
	}
	return NewAuthService(cfg, users), users
}

func TestRegisterDefaultsToPatient(t *testing.T) {
	svc, _ := newAuthService()

	user, token, _, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Password:  "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RolePatient {
		t.Fatalf("role = %q; want %q", user.Role, domain.RolePatient)
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Fatal("password was not hashed")
	}

	subject, role, err := svc.TokenManager().Verify(token)
	if err != nil {
		t.Fatalf("Verify issued token: %v", err)
	}
	if subject != "jane@example.com" || role != domain.RolePatient {
		t.Fatalf("token claims = (%q, %q)", subject, role)
	}
}

func TestRegisterNormalizesRole(t *testing.T) {
	svc, _ := newAuthService()

	user, _, _, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Greg", LastName: "House",
		Email: "house@example.com", Password: "secret123",
		Role: "doctor",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleDoctor {
		t.Fatalf("role = %q; want %q", user.Role, domain.RoleDoctor)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	input := RegisterInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "secret123"}
	if _, _, _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, _, _, err := svc.Register(ctx, input)
	if !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc, _ := newAuthService()
	_, _, _, err := svc.Register(context.Background(), RegisterInput{Email: "x@example.com"})
	if !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc, _ := newAuthService()

	_, _, _, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "ACCESS_DENIED" {
		t.Fatalf("code = %q; want ACCESS_DENIED", domainErr.Code)
	}
	if domainErr.Message != "This email is not registered with us. Please sign up first." {
		t.Fatalf("unexpected message: %q", domainErr.Message)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	if _, _, _, err := svc.Register(ctx, RegisterInput{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, _, err := svc.Authenticate(ctx, "jane@example.com", "wrong")
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "ACCESS_DENIED" {
		t.Fatalf("code = %q; want ACCESS_DENIED", domainErr.Code)
	}
	if domainErr.Message != "Invalid password. Please try again." {
		t.Fatalf("unexpected message: %q", domainErr.Message)
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	if _, _, _, err := svc.Register(ctx, RegisterInput{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, token, _, err := svc.Authenticate(ctx, "jane@example.com", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Email != "jane@example.com" {
		t.Fatalf("user email = %q", user.Email)
	}
	if _, _, err := svc.TokenManager().Verify(token); err != nil {
		t.Fatalf("Verify issued token: %v", err)
	}
}
