package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Varun5711/tinyauth/internal/auth"
	usermodel "github.com/Varun5711/tinyauth/internal/models/user"
	"github.com/google/uuid"
)

// MemoryUserStorage keeps users in process memory. Callers get copies, so a
// returned record can be modified without touching the stored one.
type MemoryUserStorage struct {
	mu      sync.RWMutex
	hasher  auth.Hasher
	byID    map[string]*usermodel.User
	byEmail map[string]string
}

func NewMemoryUserStorage(hasher auth.Hasher) *MemoryUserStorage {
	return &MemoryUserStorage{
		hasher:  hasher,
		byID:    make(map[string]*usermodel.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStorage) Create(ctx context.Context, name, email, password string) (*usermodel.User, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email = usermodel.NormalizeEmail(email)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return nil, ErrDuplicateEmail
	}

	user := &usermodel.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[user.ID] = user
	s.byEmail[email] = user.ID

	return clone(user), nil
}

func (s *MemoryUserStorage) FindByEmail(ctx context.Context, email string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[usermodel.NormalizeEmail(email)]
	if !exists {
		return nil, nil
	}

	return clone(s.byID[id]), nil
}

func (s *MemoryUserStorage) FindByID(ctx context.Context, id string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.byID[id]
	if !exists {
		return nil, nil
	}

	return clone(user), nil
}

func (s *MemoryUserStorage) UpdateProfile(ctx context.Context, id, name, email string) (*usermodel.User, error) {
	email = usermodel.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.byID[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	if owner, taken := s.byEmail[email]; taken && owner != id {
		return nil, ErrDuplicateEmail
	}

	delete(s.byEmail, user.Email)
	user.Name = name
	user.Email = email
	user.UpdatedAt = time.Now().UTC()
	s.byEmail[email] = id

	return clone(user), nil
}

func (s *MemoryUserStorage) UpdatePassword(ctx context.Context, id, password string) error {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.byID[id]
	if !exists {
		return ErrUserNotFound
	}

	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryUserStorage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.byID[id]
	if !exists {
		return ErrUserNotFound
	}

	delete(s.byEmail, user.Email)
	delete(s.byID, id)
	return nil
}

func (s *MemoryUserStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID)
}

func clone(u *usermodel.User) *usermodel.User {
	c := *u
	return &c
}
