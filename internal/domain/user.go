// Package domain contains entities without logic, just meta-data.
package domain

import "time"

// MaxBodyLen bounds a single message body.
const MaxBodyLen = 4096

type UserID string

// User carries identity only; which lobbies a user belongs to is the
// lobby directory's call, never duplicated here.
type User struct {
	ID           UserID    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
