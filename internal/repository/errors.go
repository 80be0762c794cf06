package repository

import "errors"

var (
	// ErrUserExists indicates the email is already registered
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound indicates no user matched the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
