package chat

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	goslack "github.com/slack-go/slack"
)

const (
	defaultBatchSize       = 50
	defaultBatchWait       = 61 * time.Second
	defaultInterCallDelay  = 100 * time.Millisecond
	defaultMaxRetries      = 3
	defaultBackoffBase     = 500 * time.Millisecond
	rateLimitRetryBuffer   = time.Second
)

// batchLimiter enforces the chat client's batch-window rate limiting: a
// shared call counter that forces a long sleep every batch_size calls, a
// small inter-call delay before every call, and bounded exponential
// backoff retry on rate-limit errors.
type batchLimiter struct {
	mu        sync.Mutex
	counter   int
	batchSize int
	batchWait time.Duration
	interCall time.Duration
	sleep     func(context.Context, time.Duration) error
}

func newBatchLimiter() *batchLimiter {
	return &batchLimiter{
		batchSize: defaultBatchSize,
		batchWait: defaultBatchWait,
		interCall: defaultInterCallDelay,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reset forces a fresh batch window, called between logical operations
// (e.g. per channel).
func (b *batchLimiter) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counter = 0
}

// beforeCall applies the batch-window and inter-call-delay policy ahead of
// a single API call.
func (b *batchLimiter) beforeCall(ctx context.Context) error {
	b.mu.Lock()
	b.counter++
	atBatchLimit := b.counter >= b.batchSize
	if atBatchLimit {
		b.counter = 0
	}
	b.mu.Unlock()

	if atBatchLimit {
		if err := b.sleep(ctx, b.batchWait); err != nil {
			return err
		}
	}
	return b.sleep(ctx, b.interCall)
}

// call runs fn under the batch/inter-call policy, retrying up to
// defaultMaxRetries times on a Slack rate-limit error using its
// retry-after hint (plus a one second buffer) or exponential backoff when
// no hint is present.
func (b *batchLimiter) call(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= defaultMaxRetries; attempt++ {
		if err := b.beforeCall(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var rlErr *goslack.RateLimitedError
		if !errors.As(err, &rlErr) {
			return err
		}
		if attempt == defaultMaxRetries {
			break
		}

		wait := rlErr.RetryAfter + rateLimitRetryBuffer
		if rlErr.RetryAfter <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * defaultBackoffBase
		}
		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}
