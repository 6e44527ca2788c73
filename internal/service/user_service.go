package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Varun5711/tinyauth/internal/auth"
	"github.com/Varun5711/tinyauth/internal/events"
	"github.com/Varun5711/tinyauth/internal/logger"
	usermodel "github.com/Varun5711/tinyauth/internal/models/user"
	"github.com/Varun5711/tinyauth/internal/storage"
	"github.com/Varun5711/tinyauth/internal/validation"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

const publishTimeout = 2 * time.Second

// EventPublisher receives auth events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.AuthEvent) error
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Name  string `json:"name" validate:"required,notblank,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type UserService struct {
	store     storage.UserStore
	hasher    auth.Hasher
	tokens    *auth.JWTManager
	publisher EventPublisher
	log       *logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*UserService)

func WithEventPublisher(p EventPublisher) Option {
	return func(s *UserService) {
		s.publisher = p
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *UserService) {
		s.log = l
	}
}

func NewUserService(store storage.UserStore, hasher auth.Hasher, tokens *auth.JWTManager, opts ...Option) *UserService {
	s := &UserService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*usermodel.AuthResult, error) {
	in.Email = usermodel.NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	existing, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	user, err := s.store.Create(ctx, in.Name, in.Email, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateEmail):
			// Lost the race to a concurrent registration.
			return nil, ErrUserAlreadyExists
		case errors.Is(err, auth.ErrInvalidInput):
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("Registered user %s", user.ID)
	s.publish(ctx, events.TypeUserRegistered, user)

	return result, nil
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*usermodel.AuthResult, error) {
	in.Email = usermodel.NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		// Unknown email pays the same verify cost as a wrong password.
		s.hasher.Verify(s.dummy(), in.Password)
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeUserLoggedIn, user)

	return result, nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*usermodel.PublicUser, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	public := user.Public()
	return &public, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*usermodel.PublicUser, error) {
	in.Email = usermodel.NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.store.UpdateProfile(ctx, userID, in.Name, in.Email)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, storage.ErrDuplicateEmail):
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	public := user.Public()
	return &public, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if !s.hasher.Verify(user.PasswordHash, in.CurrentPassword) {
		return ErrInvalidCredentials
	}

	if err := s.store.UpdatePassword(ctx, userID, in.NewPassword); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			return ErrUserNotFound
		case errors.Is(err, auth.ErrInvalidInput):
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.publish(ctx, events.TypePasswordChanged, user)
	return nil
}

func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.store.Delete(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.log.Info("Deleted user %s", userID)
	s.publish(ctx, events.TypeUserDeleted, user)
	return nil
}

// ValidateToken verifies token and resolves its subject. Token errors are
// returned as auth.ErrTokenInvalid or auth.ErrTokenExpired.
func (s *UserService) ValidateToken(ctx context.Context, token string) (*usermodel.PublicUser, error) {
	userID, err := s.tokens.VerifySubject(token)
	if err != nil {
		return nil, err
	}

	return s.Profile(ctx, userID)
}

func (s *UserService) issue(user *usermodel.User) (*usermodel.AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &usermodel.AuthResult{
		User:      user.Public(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *UserService) publish(ctx context.Context, eventType string, user *usermodel.User) {
	if s.publisher == nil {
		return
	}

	event := events.NewAuthEvent(ctx, eventType, user.ID, user.Email)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.log.Warn("Failed to publish %s event: %v", eventType, err)
	}
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("tinyauth-timing-equalizer")
		if err != nil {
			s.log.Error("Failed to build dummy hash: %v", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
