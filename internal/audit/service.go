package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Varun5711/tinyauth/internal/events"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix = "audit:user:"
	devicesKey    = "audit:devices"
)

type Service struct {
	client redis.Cmdable
}

func NewService(client redis.Cmdable) *Service {
	return &Service{client: client}
}

type Activity struct {
	UserID            string
	LoginCount        int64
	LastLoginAt       time.Time
	LastIP            string
	LastDevice        string
	LastBrowser       string
	LastOS            string
	RegisteredAt      time.Time
	PasswordChangedAt time.Time
}

type DeviceStats struct {
	Desktop int64
	Mobile  int64
	Bot     int64
	Unknown int64
	Total   int64
}

// Record folds a batch of events into the per-user activity hashes in a
// single round trip. Events must be in stream order.
func (s *Service) Record(ctx context.Context, batch []*events.AuthEvent) error {
	if len(batch) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range batch {
			key := userKeyPrefix + e.UserID
			ts := strconv.FormatInt(e.Timestamp, 10)

			switch e.Type {
			case events.TypeUserRegistered:
				pipe.HSet(ctx, key, "registered_at", ts)

			case events.TypeUserLoggedIn:
				pipe.HIncrBy(ctx, key, "login_count", 1)
				pipe.HSet(ctx, key, nonEmpty(map[string]string{
					"last_login_at": ts,
					"last_ip":       e.IP,
					"last_device":   e.DeviceType,
					"last_browser":  e.Browser,
					"last_os":       e.OS,
				}))

				device := e.DeviceType
				if device == "" {
					device = "unknown"
				}
				pipe.HIncrBy(ctx, devicesKey, device, 1)

			case events.TypePasswordChanged:
				pipe.HSet(ctx, key, "password_changed_at", ts)

			case events.TypeUserDeleted:
				pipe.Del(ctx, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record %d events: %w", len(batch), err)
	}
	return nil
}

// Activity returns what has been recorded for userID. A user with no recorded
// events gets a zero Activity, not an error.
func (s *Service) Activity(ctx context.Context, userID string) (*Activity, error) {
	values, err := s.client.HGetAll(ctx, userKeyPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	activity := &Activity{
		UserID:            userID,
		LastIP:            values["last_ip"],
		LastDevice:        values["last_device"],
		LastBrowser:       values["last_browser"],
		LastOS:            values["last_os"],
		LastLoginAt:       unixField(values, "last_login_at"),
		RegisteredAt:      unixField(values, "registered_at"),
		PasswordChangedAt: unixField(values, "password_changed_at"),
	}
	if n, err := strconv.ParseInt(values["login_count"], 10, 64); err == nil {
		activity.LoginCount = n
	}

	return activity, nil
}

func (s *Service) DeviceStats(ctx context.Context) (*DeviceStats, error) {
	values, err := s.client.HGetAll(ctx, devicesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load device stats: %w", err)
	}

	stats := &DeviceStats{}
	for deviceType, raw := range values {
		logins, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}

		switch deviceType {
		case "desktop":
			stats.Desktop = logins
		case "mobile":
			stats.Mobile = logins
		case "bot":
			stats.Bot = logins
		default:
			stats.Unknown += logins
		}
		stats.Total += logins
	}

	return stats, nil
}

func nonEmpty(fields map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func unixField(values map[string]string, key string) time.Time {
	sec, err := strconv.ParseInt(values[key], 10, 64)
	if err != nil || sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
