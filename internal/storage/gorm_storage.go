package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/tinyauth/internal/auth"
	usermodel "github.com/Varun5711/tinyauth/internal/models/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRecord struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex:users_email_key"`
	Name         string    `gorm:"column:name"`
	PasswordHash string    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userRecord) TableName() string { return "users" }

func (r *userRecord) toModel() *usermodel.User {
	return &usermodel.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// GormUserStorage is the gorm-backed UserStore. The handle must be opened
// with TranslateError so duplicate keys come back as gorm.ErrDuplicatedKey.
type GormUserStorage struct {
	db     *gorm.DB
	hasher auth.Hasher
}

func NewGormUserStorage(db *gorm.DB, hasher auth.Hasher) *GormUserStorage {
	return &GormUserStorage{db: db, hasher: hasher}
}

func (s *GormUserStorage) Create(ctx context.Context, name, email, password string) (*usermodel.User, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	rec := userRecord{
		ID:           uuid.New().String(),
		Email:        usermodel.NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return rec.toModel(), nil
}

func (s *GormUserStorage) FindByEmail(ctx context.Context, email string) (*usermodel.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where("email = ?", usermodel.NormalizeEmail(email)).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return rec.toModel(), nil
}

func (s *GormUserStorage) FindByID(ctx context.Context, id string) (*usermodel.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	var rec userRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return rec.toModel(), nil
}

func (s *GormUserStorage) UpdateProfile(ctx context.Context, id, name, email string) (*usermodel.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}

	res := s.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(map[string]any{
		"name":       name,
		"email":      usermodel.NormalizeEmail(email),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *GormUserStorage) UpdatePassword(ctx context.Context, id, password string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrUserNotFound
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormUserStorage) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrUserNotFound
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&userRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
