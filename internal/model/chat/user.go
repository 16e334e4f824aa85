package chat

import "time"

// User is created on first registration or on first message involving the
// address; never mutated afterwards.
type User struct {
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}
