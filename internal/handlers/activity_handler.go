package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Varun5711/tinyauth/internal/audit"
	"github.com/Varun5711/tinyauth/internal/logger"
	"github.com/Varun5711/tinyauth/internal/middleware"
)

type ActivityReader interface {
	Activity(ctx context.Context, userID string) (*audit.Activity, error)
}

// ActivityHandler serves what the audit worker has recorded about the
// caller. Recording is asynchronous, so a fresh login may not show yet.
type ActivityHandler struct {
	reader ActivityReader
	log    *logger.Logger
}

func NewActivityHandler(reader ActivityReader, log *logger.Logger) *ActivityHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ActivityHandler{reader: reader, log: log}
}

type ActivityResponse struct {
	LoginCount        int64  `json:"login_count"`
	LastLoginAt       *int64 `json:"last_login_at,omitempty"`
	LastIP            string `json:"last_ip,omitempty"`
	LastDevice        string `json:"last_device,omitempty"`
	LastBrowser       string `json:"last_browser,omitempty"`
	LastOS            string `json:"last_os,omitempty"`
	RegisteredAt      *int64 `json:"registered_at,omitempty"`
	PasswordChangedAt *int64 `json:"password_changed_at,omitempty"`
}

func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	activity, err := h.reader.Activity(ctx, user.ID)
	if err != nil {
		h.log.Error("activity failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, ActivityResponse{
		LoginCount:        activity.LoginCount,
		LastLoginAt:       unixOrNil(activity.LastLoginAt),
		LastIP:            activity.LastIP,
		LastDevice:        activity.LastDevice,
		LastBrowser:       activity.LastBrowser,
		LastOS:            activity.LastOS,
		RegisteredAt:      unixOrNil(activity.RegisteredAt),
		PasswordChangedAt: unixOrNil(activity.PasswordChangedAt),
	})
}

func unixOrNil(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	sec := t.Unix()
	return &sec
}
