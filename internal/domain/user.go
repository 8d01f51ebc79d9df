package domain

import (
	"time"

	"github.com/google/uuid"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the read-model the barter core consults for identity, role and
// reputation. Reputation runs 1-5; proposal creation requires a minimum.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Reputation   float64
	Premium      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a user with the default role and reputation
func NewUser(name, email, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Reputation:   3,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

var ErrUserNotFound = &DomainError{Message: "user not found"}
