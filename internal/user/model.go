package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the domain view of an identity record.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	FirstName    *string   `json:"firstName,omitempty"`
	LastName     *string   `json:"lastName,omitempty"`
	Image        *string   `json:"image,omitempty"`
	ProfileSetup bool      `json:"profileSetup"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
