package service

import (
	"context"
	"errors"
	"strings"

	"github.com/comic-spoiler/spoiler-detector/internal/auth"
	apperrors "github.com/comic-spoiler/spoiler-detector/internal/errors"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/observer"
	"github.com/comic-spoiler/spoiler-detector/internal/repository"
	"github.com/comic-spoiler/spoiler-detector/pkg/models"
	"github.com/comic-spoiler/spoiler-detector/pkg/validation"
)

// PasswordHasher hashes and verifies account passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// AccountService handles signup, login and session checks
type AccountService interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.MessageResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, *auth.Session, error)
	Logout(ctx context.Context, sessionID string) (*models.MessageResponse, error)
	Authenticate(ctx context.Context, sessionID string) (*auth.Session, error)
}

type accountService struct {
	users    repository.UserRepository
	sessions auth.SessionStore
	hasher   PasswordHasher
	events   observer.Subject
}

// NewAccountService creates a new account service
func NewAccountService(users repository.UserRepository, sessions auth.SessionStore, hasher PasswordHasher, events observer.Subject) AccountService {
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &accountService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		events:   events,
	}
}

func (s *accountService) Signup(ctx context.Context, req models.SignupRequest) (*models.MessageResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	logger.WithFields(map[string]interface{}{"username": username, "email": email}).Info("Signup attempt")

	if username == "" || email == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("Username, email and password required", nil)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		logger.WithField("email", email).Info("Rejected weak password")
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	_, err = s.users.CreateUser(ctx, &repository.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, repository.ErrUserExists):
		logger.WithField("email", email).Info("User already exists")
		return nil, apperrors.NewConflictError("User already exists", err)
	case err != nil:
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType: observer.UserSignedUp,
		Username:  username,
		Success:   true,
	})
	return &models.MessageResponse{Message: "Signup successful"}, nil
}

func (s *accountService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, *auth.Session, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		logger.Info("Login failed: missing username or password")
		return nil, nil, apperrors.NewValidationError("Username and password required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.loginFailed(ctx, username, "user not found")
		return nil, nil, apperrors.NewUnauthorizedError("Invalid credentials", nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to load user", err)
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		s.loginFailed(ctx, username, "invalid password")
		return nil, nil, apperrors.NewUnauthorizedError("Invalid credentials", err)
	}

	session, err := s.sessions.Create(ctx, user.Username, user.Email)
	if err != nil {
		return nil, nil, apperrors.NewUnavailableError("failed to create session", err)
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType: observer.LoginSucceeded,
		Username:  user.Username,
		Success:   true,
	})
	return &models.LoginResponse{
		Message:  "Login successful",
		Username: user.Username,
		Email:    user.Email,
	}, session, nil
}

func (s *accountService) Logout(ctx context.Context, sessionID string) (*models.MessageResponse, error) {
	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			logger.WithError(err).Warn("Failed to delete session")
		}
	}
	logger.Info("Logout: user has logged out")
	return &models.MessageResponse{Message: "Logged out successfully"}, nil
}

func (s *accountService) Authenticate(ctx context.Context, sessionID string) (*auth.Session, error) {
	if sessionID == "" {
		return nil, apperrors.NewUnauthorizedError("Unauthorized", nil)
	}
	session, err := s.sessions.Lookup(ctx, sessionID)
	if errors.Is(err, auth.ErrSessionNotFound) {
		return nil, apperrors.NewUnauthorizedError("Unauthorized", err)
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("session store unavailable", err)
	}
	return session, nil
}

func (s *accountService) loginFailed(ctx context.Context, username, reason string) {
	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:    observer.LoginFailed,
		Username:     username,
		ErrorMessage: reason,
	})
}
