package dto

// UserRequest is the user-administration create/update payload.
type UserRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Password       string `json:"password,omitempty"`
	Role           string `json:"role"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	Address        string `json:"address,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}
