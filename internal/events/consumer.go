package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMalformedEvent = errors.New("malformed auth event")

// Message is one stream entry. Event is nil when the entry could not be
// decoded; it should still be acknowledged so it is not redelivered forever.
type Message struct {
	ID    string
	Event *AuthEvent
	Err   error
}

// AuthConsumer reads auth events as one member of a consumer group. It is not
// safe for concurrent use.
type AuthConsumer struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	batchSize int64
	block     time.Duration
	claimIdle time.Duration

	// backlog is set until the pending entries left over from an earlier run
	// or a failed batch have been read again.
	backlog bool
}

// NewAuthConsumer creates a consumer. Entries another consumer has held
// unacknowledged for longer than claimIdle are taken over; zero disables that.
func NewAuthConsumer(client *redis.Client, stream, group, consumer string, batchSize int, block, claimIdle time.Duration) *AuthConsumer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AuthConsumer{
		client:    client,
		stream:    stream,
		group:     group,
		consumer:  consumer,
		batchSize: int64(batchSize),
		block:     block,
		claimIdle: claimIdle,
		backlog:   true,
	}
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (c *AuthConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Poll returns the next batch. After startup or Retry it first redelivers this
// consumer's pending entries, then claims stale ones from other consumers.
// Otherwise it blocks for up to the configured block time for new entries.
// An empty batch with a nil error means nothing arrived.
func (c *AuthConsumer) Poll(ctx context.Context) ([]Message, error) {
	if c.backlog {
		msgs, err := c.read(ctx, "0", -1)
		if err != nil || len(msgs) > 0 {
			return msgs, err
		}

		msgs, err = c.claim(ctx)
		if err != nil || len(msgs) > 0 {
			return msgs, err
		}
		c.backlog = false
	}

	return c.read(ctx, ">", c.block)
}

// Retry makes the next Poll redeliver entries that were read but not acked.
func (c *AuthConsumer) Retry() {
	c.backlog = true
}

func (c *AuthConsumer) read(ctx context.Context, id string, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, id},
		Count:    c.batchSize,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var out []Message
	for _, stream := range streams {
		out = append(out, toMessages(stream.Messages)...)
	}
	return out, nil
}

func (c *AuthConsumer) claim(ctx context.Context) ([]Message, error) {
	if c.claimIdle <= 0 {
		return nil, nil
	}

	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  c.claimIdle,
		Start:    "0-0",
		Count:    c.batchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim pending entries: %w", err)
	}
	return toMessages(msgs), nil
}

func toMessages(msgs []redis.XMessage) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		event, err := decode(msg.Values)
		out = append(out, Message{ID: msg.ID, Event: event, Err: err})
	}
	return out
}

func (c *AuthConsumer) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.client.XAck(ctx, c.stream, c.group, ids...).Err()
}

func decode(values map[string]interface{}) (*AuthEvent, error) {
	get := func(key string) string {
		v, _ := values[key].(string)
		return v
	}

	event := &AuthEvent{
		Type:       get("type"),
		UserID:     get("user_id"),
		Email:      get("email"),
		IP:         get("ip"),
		IPScope:    get("ip_scope"),
		UserAgent:  get("user_agent"),
		Browser:    get("browser"),
		OS:         get("os"),
		DeviceType: get("device_type"),
	}
	if event.Type == "" || event.UserID == "" {
		return nil, fmt.Errorf("%w: missing type or user_id", ErrMalformedEvent)
	}

	ts, err := strconv.ParseInt(get("timestamp"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp: %v", ErrMalformedEvent, err)
	}
	event.Timestamp = ts

	return event, nil
}
