package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Varun5711/tinyauth/internal/logger"
	usermodel "github.com/Varun5711/tinyauth/internal/models/user"
)

// Rejection reasons. Callers only ever see a 401 with the same message; the
// reason goes to the log.
var (
	ErrNoTokenProvided = errors.New("no bearer token provided")
	ErrTokenRejected   = errors.New("token rejected")
	ErrSubjectNotFound = errors.New("token subject not found")
)

const unauthorizedMessage = "not authorized"

type contextKey string

const userKey contextKey = "auth_user"

type TokenVerifier interface {
	VerifySubject(token string) (string, error)
}

type SubjectResolver interface {
	FindByID(ctx context.Context, id string) (*usermodel.User, error)
}

type AuthMiddleware struct {
	tokens  TokenVerifier
	users   SubjectResolver
	timeout time.Duration
	log     *logger.Logger
}

func NewAuthMiddleware(tokens TokenVerifier, users SubjectResolver, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthMiddleware{
		tokens:  tokens,
		users:   users,
		timeout: 5 * time.Second,
		log:     log,
	}
}

// RequireAuth lets a request through only with a valid bearer token whose
// subject still exists. Every other outcome ends the request with a 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, *user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (*usermodel.PublicUser, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, ErrNoTokenProvided
	}

	subject, err := m.tokens.VerifySubject(token)
	if err != nil {
		return nil, errors.Join(ErrTokenRejected, err)
	}

	ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
	defer cancel()

	user, err := m.users.FindByID(ctx, subject)
	if err != nil {
		m.log.Error("Failed to resolve token subject %s: %v", subject, err)
		return nil, errors.Join(ErrSubjectNotFound, err)
	}
	if user == nil {
		return nil, ErrSubjectNotFound
	}

	public := user.Public()
	return &public, nil
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, reason error) {
	m.log.Warn("Rejected %s %s: %v", r.Method, r.URL.Path, reason)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tinyauth"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": unauthorizedMessage})
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively and the token must be non-empty.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// CurrentUser returns the identity RequireAuth attached to ctx.
func CurrentUser(ctx context.Context) (usermodel.PublicUser, bool) {
	user, ok := ctx.Value(userKey).(usermodel.PublicUser)
	return user, ok
}

func GetUserID(ctx context.Context) string {
	if user, ok := CurrentUser(ctx); ok {
		return user.ID
	}
	return ""
}
