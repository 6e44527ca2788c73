package audit

import (
	"context"
	"testing"
	"time"

	"github.com/Varun5711/tinyauth/internal/events"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewService(client), mr
}

func event(typ, userID string, ts int64, device string) *events.AuthEvent {
	return &events.AuthEvent{
		Type:       typ,
		UserID:     userID,
		Timestamp:  ts,
		IP:         "203.0.113.9",
		DeviceType: device,
		Browser:    "Firefox 128.0",
		OS:         "Linux x86_64",
	}
}

func TestRecordAndActivity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Record(ctx, []*events.AuthEvent{
		event(events.TypeUserRegistered, "alice", 1000, ""),
		event(events.TypeUserLoggedIn, "alice", 1100, "desktop"),
		event(events.TypeUserLoggedIn, "alice", 1200, "mobile"),
		event(events.TypePasswordChanged, "alice", 1300, ""),
		event(events.TypeUserLoggedIn, "bob", 1400, ""),
	})
	require.NoError(t, err)

	activity, err := svc.Activity(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), activity.LoginCount)
	assert.Equal(t, time.Unix(1200, 0).UTC(), activity.LastLoginAt)
	assert.Equal(t, time.Unix(1000, 0).UTC(), activity.RegisteredAt)
	assert.Equal(t, time.Unix(1300, 0).UTC(), activity.PasswordChangedAt)
	assert.Equal(t, "mobile", activity.LastDevice)
	assert.Equal(t, "203.0.113.9", activity.LastIP)

	stats, err := svc.DeviceStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &DeviceStats{Desktop: 1, Mobile: 1, Unknown: 1, Total: 3}, stats)
}

func TestActivity_Unknown(t *testing.T) {
	svc, _ := newTestService(t)

	activity, err := svc.Activity(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", activity.UserID)
	assert.Zero(t, activity.LoginCount)
	assert.True(t, activity.LastLoginAt.IsZero())
}

func TestRecord_DeleteClearsActivity(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, []*events.AuthEvent{
		event(events.TypeUserLoggedIn, "carol", 10, "desktop"),
		event(events.TypeUserDeleted, "carol", 20, ""),
	}))

	assert.False(t, mr.Exists(userKeyPrefix+"carol"))
}

func TestRecord_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.Record(context.Background(), nil))
}

func TestRecord_RedisDown(t *testing.T) {
	svc, mr := newTestService(t)
	mr.Close()

	err := svc.Record(context.Background(), []*events.AuthEvent{event(events.TypeUserLoggedIn, "x", 1, "")})
	assert.Error(t, err)
}
