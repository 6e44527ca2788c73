package grpc

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Varun5711/tinyauth/internal/auth"
	"github.com/Varun5711/tinyauth/internal/logger"
	"github.com/Varun5711/tinyauth/internal/service"
	"github.com/Varun5711/tinyauth/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const tokenSecret = "grpc-secret"

func startServer(t *testing.T) (*AuthClient, *bytes.Buffer) {
	t.Helper()

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	store := storage.NewMemoryUserStorage(hasher)
	svc := service.NewUserService(store, hasher, auth.NewJWTManager(tokenSecret, time.Hour))

	var logs bytes.Buffer
	log := logger.NewWithWriter("user-service", &logs, logger.DEBUG)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(log)))
	Register(server, NewAuthServer(svc, log))

	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	client, err := NewAuthClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, &logs
}

func TestRegisterLoginValidate(t *testing.T) {
	client, logs := startServer(t)
	ctx := context.Background()

	reg, err := client.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.UserID)
	assert.NotEmpty(t, reg.Token)
	assert.True(t, reg.ExpiresAt.After(time.Now()))

	login, err := client.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, login.UserID)

	id, err := client.ValidateToken(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, id.UserID)
	assert.Equal(t, "alice@example.com", id.Email)

	assert.True(t, strings.Contains(logs.String(), "/tinyauth.v1.AuthService/Login"))
}

func TestStatusCodes(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	_, err := client.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	expired, _, err := auth.NewJWTManager(tokenSecret, -time.Minute).GenerateToken("whoever")
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"duplicate register", func() error {
			_, err := client.Register(ctx, "Alice", "alice@example.com", "secret123")
			return err
		}, codes.AlreadyExists},
		{"invalid register", func() error {
			_, err := client.Register(ctx, "", "nope", "x")
			return err
		}, codes.InvalidArgument},
		{"wrong password", func() error {
			_, err := client.Login(ctx, "alice@example.com", "wrong-password")
			return err
		}, codes.Unauthenticated},
		{"unknown email", func() error {
			_, err := client.Login(ctx, "bob@example.com", "secret123")
			return err
		}, codes.Unauthenticated},
		{"garbage token", func() error {
			_, err := client.ValidateToken(ctx, "garbage")
			return err
		}, codes.Unauthenticated},
		{"expired token", func() error {
			_, err := client.ValidateToken(ctx, expired)
			return err
		}, codes.Unauthenticated},
		{"missing token", func() error {
			_, err := client.ValidateToken(ctx, "")
			return err
		}, codes.InvalidArgument},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.Equal(t, tc.want, status.Code(err))
		})
	}
}
