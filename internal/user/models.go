package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the durable identity resolved once per connection. CircleIDs is the
// set of rooms the user is fanned into on connect.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  string
	AvatarURL    string
	CircleIDs    []string

	Online   bool
	LastSeen *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
