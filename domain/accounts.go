package domain

import (
	"errors"
	"fmt"
	"github.com/google/uuid"
	"time"
)

var (
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by stores when a unique constraint is violated.
	ErrConflict = errors.New("record already exists")
)

type Account struct {
	Id           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

func (acc *Account) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tUsername: %s \n\tEmail: %s \n\tCREATED_AT: %s)", acc.Id, acc.Username, acc.Email, acc.CreatedAt)
}

// PasswordReset is a one-time token issued by a forgotten-password request.
// Only the hash of the token is stored.
type PasswordReset struct {
	Id        uuid.UUID
	AccountId uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (r *PasswordReset) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
