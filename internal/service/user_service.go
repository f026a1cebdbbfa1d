package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/domain"
	"github.com/spec-kit/health-records-service/internal/repository"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// UserService covers user administration. Role gating for these operations
// happens at the route level; ownership never applies because only admins
// (and doctors, for patient listings) reach them.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// UserInput describes create/update payloads for user administration.
type UserInput struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	Role           string
	PhoneNumber    string
	Address        string
	Specialization string
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// ListDoctors returns the doctor directory.
func (s *UserService) ListDoctors(ctx context.Context) ([]domain.User, error) {
	return s.users.ListByRole(ctx, domain.RoleDoctor)
}

// ListPatients returns all patients.
func (s *UserService) ListPatients(ctx context.Context) ([]domain.User, error) {
	return s.users.ListByRole(ctx, domain.RolePatient)
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, err
	}
	return user, nil
}

// Create adds a user with an explicit role.
func (s *UserService) Create(ctx context.Context, input UserInput) (*domain.User, error) {
	role, ok := domain.NormalizeRole(input.Role)
	if !ok {
		return nil, apperrors.NewInvalidArgument("unknown role", map[string]any{"role": input.Role})
	}
	if input.Email == "" || input.Password == "" {
		return nil, apperrors.NewInvalidArgument("email and password are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewInvalidArgument("Email is already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		PasswordHash:   hash,
		Role:           role,
		PhoneNumber:    input.PhoneNumber,
		Address:        input.Address,
		Specialization: input.Specialization,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update rewrites a user's profile. The password is re-hashed only when a
// new one is provided.
func (s *UserService) Update(ctx context.Context, id int64, input UserInput) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	role, ok := domain.NormalizeRole(input.Role)
	if !ok {
		return nil, apperrors.NewInvalidArgument("unknown role", map[string]any{"role": input.Role})
	}

	if input.Email != user.Email {
		if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
			return nil, apperrors.NewInvalidArgument("Email is already registered", nil)
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Email = input.Email
	user.Role = role
	user.PhoneNumber = input.PhoneNumber
	user.Address = input.Address
	user.Specialization = input.Specialization

	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return err
	}
	return nil
}
