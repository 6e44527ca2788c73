package events

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProducer(t *testing.T) (*AuthProducer, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewAuthProducer(client, "auth:events", 0), client
}

func TestPublish(t *testing.T) {
	producer, client := newTestProducer(t)
	ctx := WithClient(context.Background(), Client{
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	})

	event := NewAuthEvent(ctx, TypeUserLoggedIn, "user-1", "alice@example.com")
	require.NoError(t, producer.Publish(ctx, event))

	n, err := client.XLen(ctx, "auth:events").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := client.XRange(ctx, "auth:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, TypeUserLoggedIn, values["type"])
	assert.Equal(t, "user-1", values["user_id"])
	assert.Equal(t, "203.0.113.7", values["ip"])
	assert.Equal(t, "public", values["ip_scope"])
	assert.Equal(t, "mobile", values["device_type"])
}

func TestPublish_WithoutClient(t *testing.T) {
	producer, client := newTestProducer(t)
	ctx := context.Background()

	require.NoError(t, producer.Publish(ctx, NewAuthEvent(ctx, TypeUserRegistered, "user-2", "bob@example.com")))

	entries, err := client.XRange(ctx, "auth:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, hasIP := entries[0].Values["ip"]
	assert.False(t, hasIP, "ip should be omitted when unknown")
}

func TestPublish_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	producer := NewAuthProducer(client, "auth:events", 100)
	err := producer.Publish(context.Background(), NewAuthEvent(context.Background(), TypeUserLoggedIn, "u", "e"))
	assert.Error(t, err)
}
