package repository

import (
	"context"
	"time"
)

// UserRepository defines the data access operations for accounts
type UserRepository interface {
	// CreateUser stores a new account and returns it with its ID set
	CreateUser(ctx context.Context, user *User) (*User, error)

	// GetByUsername retrieves an account by its username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves an account by its email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Ping verifies the backing store is reachable
	Ping(ctx context.Context) error

	Close() error
}

// User is a registered account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
