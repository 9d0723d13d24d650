package model

import "time"

// Account is a stored identity record. Email and username are each unique
// across all accounts; PasswordHash holds an argon2id PHC string and is
// never serialized.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	LoggedIn     bool      `json:"logged_in"`
	RecoveryCode *int      `json:"recovery_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginSuccess is the public identity pair returned by a successful login.
type LoginSuccess struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}
