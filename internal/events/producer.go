package events

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type AuthProducer struct {
	client     *redis.Client
	streamName string
	maxLen     int64
}

// NewAuthProducer publishes to streamName, trimming it to roughly maxLen
// entries. A maxLen of zero leaves the stream unbounded.
func NewAuthProducer(client *redis.Client, streamName string, maxLen int64) *AuthProducer {
	return &AuthProducer{
		client:     client,
		streamName: streamName,
		maxLen:     maxLen,
	}
}

func (p *AuthProducer) Publish(ctx context.Context, event *AuthEvent) error {
	args := &redis.XAddArgs{
		Stream: p.streamName,
		Values: fields(event),
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	return nil
}

func fields(event *AuthEvent) map[string]interface{} {
	f := map[string]interface{}{
		"type":      event.Type,
		"user_id":   event.UserID,
		"timestamp": strconv.FormatInt(event.Timestamp, 10),
	}

	optional := map[string]string{
		"email":       event.Email,
		"ip":          event.IP,
		"ip_scope":    event.IPScope,
		"user_agent":  event.UserAgent,
		"browser":     event.Browser,
		"os":          event.OS,
		"device_type": event.DeviceType,
	}
	for k, v := range optional {
		if v != "" {
			f[k] = v
		}
	}

	return f
}
