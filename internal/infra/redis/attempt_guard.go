package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/engine"
)

// AttemptGuard wraps an attempt sink with a Redis marker so a retried
// submission of the same attempt — a client that lost the response, or
// two racing submit commands — is written at most once. A duplicate is
// reported as already persisted, which the session treats as success.
type AttemptGuard struct {
	client *redis.Client
	inner  engine.Sink
	ttl    time.Duration
}

func NewAttemptGuard(client *redis.Client, inner engine.Sink, ttl time.Duration) *AttemptGuard {
	return &AttemptGuard{client: client, inner: inner, ttl: ttl}
}

func (g *AttemptGuard) SaveAttempt(ctx context.Context, payload domain.AttemptPayload) error {
	key := g.key(payload.AttemptID)
	acquired, err := g.client.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		// Redis being down must not block scoring; fall through to the sink.
		return g.inner.SaveAttempt(ctx, payload)
	}
	if !acquired {
		return domain.ErrAttemptExists
	}
	if err := g.inner.SaveAttempt(ctx, payload); err != nil {
		// Release the marker so a retry can reach the sink again.
		_ = g.client.Del(ctx, key).Err()
		return err
	}
	return nil
}

func (g *AttemptGuard) key(attemptID string) string {
	return "attempt:" + attemptID + ":submitted"
}
