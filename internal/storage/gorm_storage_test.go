package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Varun5711/tinyauth/internal/auth"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newGormMock(t *testing.T) (*GormUserStorage, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewGormUserStorage(db, auth.NewBcryptHasher(bcrypt.MinCost)), mock
}

func TestGormFindByEmail(t *testing.T) {
	s, mock := newGormMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at", "updated_at"}).
		AddRow(testUserID, "alice@example.com", "Alice", "$2a$04$stored", now, now)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(rows)

	user, err := s.FindByEmail(context.Background(), "Alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, testUserID, user.ID)
	assert.Equal(t, "$2a$04$stored", user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFindByEmail_Absent(t *testing.T) {
	s, mock := newGormMock(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at", "updated_at"}))

	user, err := s.FindByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestGormFindByID_MalformedID(t *testing.T) {
	s, mock := newGormMock(t)

	user, err := s.FindByID(context.Background(), "42")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreate_DuplicateEmail(t *testing.T) {
	s, mock := newGormMock(t)

	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := s.Create(context.Background(), "Alice", "alice@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestGormUpdatePassword(t *testing.T) {
	s, mock := newGormMock(t)

	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdatePassword(context.Background(), testUserID, "n3w-passw0rd"))

	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.UpdatePassword(context.Background(), testUserID, "n3w-passw0rd"), ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDelete(t *testing.T) {
	s, mock := newGormMock(t)

	mock.ExpectExec(`DELETE FROM "users" WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), testUserID))

	mock.ExpectExec(`DELETE FROM "users" WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(context.Background(), testUserID), ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
