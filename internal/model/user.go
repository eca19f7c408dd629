package model

import "time"

const MaxUsernameLength = 80

// User is a local account. Notes are not scoped to users.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
