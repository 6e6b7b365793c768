package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/insport-app/auth-service/internal/session"
)

// ErrLimitExceeded is returned once an identifier exhausts its window budget.
var ErrLimitExceeded = errors.New("too many requests, please try again later")

// Limiter is a fixed-window counter keyed by identifier. The first increment
// in a window arms the expiry, so counts reset automatically when the window
// rolls over.
type Limiter struct {
	store  session.Store
	prefix string
	limit  int64
	window time.Duration
}

func New(store session.Store, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, prefix: prefix, limit: int64(limit), window: window}
}

// CheckAndIncrement counts one request for key and fails with ErrLimitExceeded
// when the window budget is exhausted. The increment is atomic against
// concurrent requests for the same key.
func (l *Limiter) CheckAndIncrement(ctx context.Context, key string) error {
	count, err := l.store.Incr(ctx, l.prefix+key, l.window)
	if err != nil {
		return fmt.Errorf("rate limit increment: %w", err)
	}
	if count > l.limit {
		return ErrLimitExceeded
	}
	return nil
}
