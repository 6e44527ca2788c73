package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Varun5711/tinyauth/internal/enrichment"
	"github.com/Varun5711/tinyauth/internal/events"
	"github.com/Varun5711/tinyauth/internal/logger"
	"github.com/Varun5711/tinyauth/internal/middleware"
	usermodel "github.com/Varun5711/tinyauth/internal/models/user"
	"github.com/Varun5711/tinyauth/internal/service"
)

const (
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*usermodel.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*usermodel.AuthResult, error)
	Profile(ctx context.Context, userID string) (*usermodel.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, in service.UpdateProfileInput) (*usermodel.PublicUser, error)
	ChangePassword(ctx context.Context, userID string, in service.ChangePasswordInput) error
	DeleteAccount(ctx context.Context, userID string) error
}

type AuthHandler struct {
	svc AuthService
	log *logger.Logger
}

func NewAuthHandler(svc AuthService, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.New("auth-handler")
	}
	return &AuthHandler{
		svc: svc,
		log: log,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AuthResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type ProfileResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.svc.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(w, h.log, "register", err)
		return
	}

	respondJSON(w, http.StatusCreated, toAuthResponse(res))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.svc.Login(ctx, service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(w, h.log, "login", err)
		return
	}

	respondJSON(w, http.StatusOK, toAuthResponse(res))
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	user, err := h.svc.Profile(ctx, middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, h.log, "get profile", err)
		return
	}

	respondJSON(w, http.StatusOK, toProfileResponse(user))
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	current, _ := middleware.CurrentUser(r.Context())
	if req.Name == "" {
		req.Name = current.Name
	}
	if req.Email == "" {
		req.Email = current.Email
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	user, err := h.svc.UpdateProfile(ctx, current.ID, service.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		respondServiceError(w, h.log, "update profile", err)
		return
	}

	respondJSON(w, http.StatusOK, toProfileResponse(user))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	err := h.svc.ChangePassword(ctx, middleware.GetUserID(r.Context()), service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		respondServiceError(w, h.log, "change password", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.svc.DeleteAccount(ctx, middleware.GetUserID(r.Context())); err != nil {
		respondServiceError(w, h.log, "delete account", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Debug("Failed to decode request: %v", err)
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// requestContext bounds the service call and records who is calling for the
// auth event stream.
func (h *AuthHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := events.WithClient(r.Context(), events.Client{
		IP:        enrichment.PeerIP(r),
		UserAgent: r.UserAgent(),
	})
	return context.WithTimeout(ctx, requestTimeout)
}

func toAuthResponse(res *usermodel.AuthResult) AuthResponse {
	return AuthResponse{
		ID:        res.User.ID,
		Name:      res.User.Name,
		Email:     res.User.Email,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.Unix(),
	}
}

func toProfileResponse(u *usermodel.PublicUser) ProfileResponse {
	return ProfileResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Unix(),
		UpdatedAt: u.UpdatedAt.Unix(),
	}
}
