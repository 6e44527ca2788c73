package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Varun5711/tinyauth/internal/events"
	"github.com/Varun5711/tinyauth/internal/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	batches [][]events.Message
	acked   []string
	pollErr error
	retries int
}

func (s *stubSource) Poll(context.Context) ([]events.Message, error) {
	if s.pollErr != nil {
		return nil, s.pollErr
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	next := s.batches[0]
	s.batches = s.batches[1:]
	return next, nil
}

func (s *stubSource) Ack(_ context.Context, ids ...string) error {
	s.acked = append(s.acked, ids...)
	return nil
}

func (s *stubSource) Retry() {
	s.retries++
}

func TestProcessBatch_AcksEverything(t *testing.T) {
	svc, _ := newTestService(t)
	source := &stubSource{batches: [][]events.Message{{
		{ID: "1-0", Event: event(events.TypeUserLoggedIn, "alice", 100, "desktop")},
		{ID: "2-0", Err: events.ErrMalformedEvent},
	}}}

	n, err := NewWorker(source, svc, logger.Nop(), time.Millisecond).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"1-0", "2-0"}, source.acked)

	activity, err := svc.Activity(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), activity.LoginCount)
}

func TestProcessBatch_NoAckOnRecordFailure(t *testing.T) {
	svc, mr := newTestService(t)
	mr.Close()

	source := &stubSource{batches: [][]events.Message{{
		{ID: "1-0", Event: event(events.TypeUserLoggedIn, "alice", 100, "desktop")},
	}}}

	_, err := NewWorker(source, svc, logger.Nop(), time.Millisecond).ProcessBatch(context.Background())
	assert.Error(t, err)
	assert.Empty(t, source.acked)
	assert.Equal(t, 1, source.retries)
}

func TestProcessBatch_PollError(t *testing.T) {
	svc, _ := newTestService(t)
	source := &stubSource{pollErr: errors.New("connection refused")}

	_, err := NewWorker(source, svc, nil, time.Millisecond).ProcessBatch(context.Background())
	assert.Error(t, err)
}

func TestRun_EndToEndOverStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := events.NewAuthConsumer(client, "auth:events", "audit", "w1", 10, -1, 0)
	require.NoError(t, consumer.EnsureGroup(ctx))

	producer := events.NewAuthProducer(client, "auth:events", 0)
	require.NoError(t, producer.Publish(ctx, events.NewAuthEvent(ctx, events.TypeUserLoggedIn, "alice", "alice@example.com")))

	svc := NewService(client)
	done := make(chan struct{})
	go func() {
		NewWorker(consumer, svc, logger.Nop(), 10*time.Millisecond).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		activity, err := svc.Activity(context.Background(), "alice")
		return err == nil && activity.LoginCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestProcessBatch_FailedBatchIsRedelivered(t *testing.T) {
	streamRedis := miniredis.RunT(t)
	streamClient := redis.NewClient(&redis.Options{Addr: streamRedis.Addr()})
	t.Cleanup(func() { _ = streamClient.Close() })
	ctx := context.Background()

	consumer := events.NewAuthConsumer(streamClient, "auth:events", "audit", "w1", 10, -1, 0)
	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, events.NewAuthProducer(streamClient, "auth:events", 0).Publish(ctx, events.NewAuthEvent(ctx, events.TypeUserLoggedIn, "alice", "alice@example.com")))

	down, downRedis := newTestService(t)
	downRedis.Close()
	_, err := NewWorker(consumer, down, logger.Nop(), time.Millisecond).ProcessBatch(ctx)
	require.Error(t, err)

	healthy, _ := newTestService(t)
	worker := NewWorker(consumer, healthy, logger.Nop(), time.Millisecond)

	n, err := worker.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	activity, err := healthy.Activity(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), activity.LoginCount)

	pending, err := streamClient.XPending(ctx, "auth:events", "audit").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	n, err = worker.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLogStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, []*events.AuthEvent{
		event(events.TypeUserLoggedIn, "alice", 100, "desktop"),
		event(events.TypeUserLoggedIn, "bob", 101, "mobile"),
	}))

	var buf bytes.Buffer
	w := NewWorker(&stubSource{}, svc, logger.NewWithWriter("audit-worker", &buf, logger.INFO), time.Millisecond)
	w.logStats(ctx)

	assert.Contains(t, buf.String(), "desktop=1 mobile=1 bot=0 unknown=0 total=2")
}

func TestReportStats_StopsOnCancel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewWorker(&stubSource{}, svc, nil, time.Millisecond).ReportStats(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ReportStats did not stop after cancel")
	}
}
