package domain

import "github.com/google/uuid"

// UnknownUserName is shown in activity messages when a user cannot be resolved.
const UnknownUserName = "Unknown"

// User is the subset of a user account the board needs for attribution.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// DisplayName returns the user's name, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return UnknownUserName
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return UnknownUserName
}
