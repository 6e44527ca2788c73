package events

import (
	"context"
	"time"

	"github.com/Varun5711/tinyauth/internal/enrichment"
)

const (
	TypeUserRegistered  = "user.registered"
	TypeUserLoggedIn    = "user.logged_in"
	TypePasswordChanged = "user.password_changed"
	TypeUserDeleted     = "user.deleted"
)

type AuthEvent struct {
	Type       string
	UserID     string
	Email      string
	Timestamp  int64
	IP         string
	IPScope    string
	UserAgent  string
	Browser    string
	OS         string
	DeviceType string
}

// Client describes the caller that triggered an event.
type Client struct {
	IP        string
	UserAgent string
}

type clientKey struct{}

func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

func ClientFromContext(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(clientKey{}).(Client)
	return c, ok
}

// NewAuthEvent stamps an event and fills in whatever is known about the
// caller from ctx.
func NewAuthEvent(ctx context.Context, eventType, userID, email string) *AuthEvent {
	event := &AuthEvent{
		Type:      eventType,
		UserID:    userID,
		Email:     email,
		Timestamp: time.Now().Unix(),
	}

	if c, ok := ClientFromContext(ctx); ok {
		event.IP = c.IP
		event.IPScope = enrichment.IPScope(c.IP)
		event.UserAgent = c.UserAgent

		ua := enrichment.ParseUserAgent(c.UserAgent)
		event.Browser = ua.Browser
		event.OS = ua.OS
		event.DeviceType = ua.DeviceType
	}

	return event
}
