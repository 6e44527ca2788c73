package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Varun5711/tinyauth/internal/auth"
	"github.com/Varun5711/tinyauth/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testUserID = "6f1c7a3e-8d9b-4c2a-9e5f-0a1b2c3d4e5f"

type singlePool struct {
	q database.Querier
}

func (p singlePool) Write() database.Querier { return p.q }
func (p singlePool) Read() database.Querier  { return p.q }

// hashOf matches a query argument that is a hash of password.
type hashOf struct {
	hasher   auth.Hasher
	password string
}

func (h hashOf) Match(v interface{}) bool {
	s, ok := v.(string)
	return ok && s != h.password && h.hasher.Verify(s, h.password)
}

func newMockStorage(t *testing.T) (*PostgresUserStorage, pgxmock.PgxPoolIface, auth.Hasher) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	return NewUserStorage(singlePool{q: mock}, hasher), mock, hasher
}

func userRows(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at", "updated_at"}).
		AddRow(testUserID, "alice@example.com", "Alice", "$2a$04$stored", now, now)
}

func TestPostgresCreate_HashesAndNormalizes(t *testing.T) {
	s, mock, hasher := newMockStorage(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "alice@example.com", "Alice", hashOf{hasher, "hunter2hunter2"}, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(userRows(now))

	user, err := s.Create(context.Background(), "Alice", "  Alice@Example.com ", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, testUserID, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_DuplicateEmail(t *testing.T) {
	s, mock, _ := newMockStorage(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := s.Create(context.Background(), "Alice", "alice@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_EmptyPasswordNeverReachesDatabase(t *testing.T) {
	s, mock, _ := newMockStorage(t)

	_, err := s.Create(context.Background(), "Alice", "alice@example.com", "")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByEmail(t *testing.T) {
	s, mock, _ := newMockStorage(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRows(now))

	user, err := s.FindByEmail(context.Background(), "ALICE@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "$2a$04$stored", user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByEmail_Absent(t *testing.T) {
	s, mock, _ := newMockStorage(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	user, err := s.FindByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestPostgresFindByEmail_QueryError(t *testing.T) {
	s, mock, _ := newMockStorage(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WillReturnError(errors.New("connection reset"))

	user, err := s.FindByEmail(context.Background(), "alice@example.com")
	assert.Error(t, err)
	assert.Nil(t, user)
}

func TestPostgresFindByID(t *testing.T) {
	s, mock, _ := newMockStorage(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnRows(userRows(now))

	user, err := s.FindByID(context.Background(), testUserID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.Name)
}

func TestPostgresFindByID_MalformedID(t *testing.T) {
	s, mock, _ := newMockStorage(t)

	user, err := s.FindByID(context.Background(), "not-a-uuid")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateProfile(t *testing.T) {
	s, mock, _ := newMockStorage(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE users`).
		WithArgs("Alice", "alice@example.com", pgxmock.AnyArg(), testUserID).
		WillReturnRows(userRows(now))

	user, err := s.UpdateProfile(context.Background(), testUserID, "Alice", "Alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestPostgresUpdateProfile_Errors(t *testing.T) {
	s, mock, _ := newMockStorage(t)

	mock.ExpectQuery(`UPDATE users`).WillReturnError(pgx.ErrNoRows)
	_, err := s.UpdateProfile(context.Background(), testUserID, "Alice", "alice@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	mock.ExpectQuery(`UPDATE users`).WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = s.UpdateProfile(context.Background(), testUserID, "Alice", "bob@example.com")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestPostgresUpdatePassword(t *testing.T) {
	s, mock, hasher := newMockStorage(t)

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(hashOf{hasher, "n3w-passw0rd"}, pgxmock.AnyArg(), testUserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdatePassword(context.Background(), testUserID, "n3w-passw0rd"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdatePassword_NotFound(t *testing.T) {
	s, mock, _ := newMockStorage(t)

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, s.UpdatePassword(context.Background(), testUserID, "n3w-passw0rd"), ErrUserNotFound)
}

func TestPostgresDelete(t *testing.T) {
	s, mock, _ := newMockStorage(t)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.Delete(context.Background(), testUserID))

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, s.Delete(context.Background(), testUserID), ErrUserNotFound)

	assert.ErrorIs(t, s.Delete(context.Background(), "garbage"), ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
