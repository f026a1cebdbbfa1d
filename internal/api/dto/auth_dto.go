package dto

import (
	"time"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// RegisterRequest is the registration payload. Role is optional and defaults
// to patient.
type RegisterRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	Address        string `json:"address,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

// AuthenticationRequest is the login payload.
type AuthenticationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthenticationResponse carries the issued token and the authenticated user.
type AuthenticationResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserResponse is the wire shape for a user; the password hash never leaves
// the service.
type UserResponse struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	Address        string `json:"address,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

// NewUserResponse maps a domain user to its wire shape.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Email:          user.Email,
		Role:           string(user.Role),
		PhoneNumber:    user.PhoneNumber,
		Address:        user.Address,
		Specialization: user.Specialization,
	}
}

// NewUserResponses maps a slice of domain users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
