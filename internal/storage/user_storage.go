package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/tinyauth/internal/auth"
	"github.com/Varun5711/tinyauth/internal/database"
	usermodel "github.com/Varun5711/tinyauth/internal/models/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, password_hash, created_at, updated_at`

type PostgresUserStorage struct {
	db     database.Router
	hasher auth.Hasher
	now    func() time.Time
}

func NewUserStorage(db database.Router, hasher auth.Hasher) *PostgresUserStorage {
	return &PostgresUserStorage{
		db:     db,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostgresUserStorage) Create(ctx context.Context, name, email, password string) (*usermodel.User, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID := uuid.New().String()
	now := s.now()

	query := `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	user, err := scanUser(s.db.Write().QueryRow(ctx, query,
		userID,
		usermodel.NormalizeEmail(email),
		name,
		passwordHash,
		now,
		now,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *PostgresUserStorage) FindByEmail(ctx context.Context, email string) (*usermodel.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.db.Read().QueryRow(ctx, query, usermodel.NormalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (s *PostgresUserStorage) FindByID(ctx context.Context, id string) (*usermodel.User, error) {
	// Postgres rejects a malformed uuid literal; such an id cannot name a user.
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.Read().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (s *PostgresUserStorage) UpdateProfile(ctx context.Context, id, name, email string) (*usermodel.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}

	query := `
		UPDATE users
		SET name = $1, email = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + userColumns

	user, err := scanUser(s.db.Write().QueryRow(ctx, query, name, usermodel.NormalizeEmail(email), s.now(), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

func (s *PostgresUserStorage) UpdatePassword(ctx context.Context, id, password string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrUserNotFound
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tag, err := s.db.Write().Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, s.now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (s *PostgresUserStorage) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrUserNotFound
	}

	tag, err := s.db.Write().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*usermodel.User, error) {
	var user usermodel.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
