package model

import "time"

// User is a stored account. Email is persisted lowercase; PasswordHash is a
// bcrypt hash, never the plaintext password.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
