package models

import "time"

// Account is an API login. PasswordHash holds an argon2id PHC string.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
