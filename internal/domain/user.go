package domain

import "time"

// User is an account on the server. The first user created during setup is
// the root user; BookMemo is a personal app, so there are no further roles.
type User struct {
	Syncable
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	DisplayName  string    `json:"display_name"`
	IsRoot       bool      `json:"is_root"`
	LastLoginAt  time.Time `json:"last_login_at"`
}
