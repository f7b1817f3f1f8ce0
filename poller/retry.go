package poller

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rustyeddy/accountmanager/broker"
	"github.com/rustyeddy/accountmanager/internal/clock"
	"go.uber.org/zap"
)

// RetryPolicy retries transient failures with exponential backoff.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration // zero means unbounded
}

// backOff doubles from BaseDelay up to MaxDelay, without jitter, and stops
// after Attempts-1 retries.
func (r RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.BaseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = r.MaxDelay
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = math.MaxInt64
	}
	eb.MaxElapsedTime = 0
	eb.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// clockTimer runs backoff waits on the poller's clock.
type clockTimer struct {
	clock clock.Clock
	c     <-chan time.Time
}

func (t *clockTimer) Start(d time.Duration) { t.c = t.clock.After(d) }
func (t *clockTimer) Stop()                 {}
func (t *clockTimer) C() <-chan time.Time   { return t.c }

// retry runs fn until it succeeds, fails permanently, or runs out of
// attempts. The last error is returned.
func (p *Poller) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err != nil && (ctx.Err() != nil || !broker.IsTemporary(err)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		p.log.Warn("transient failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("attempts", p.opts.Retry.Attempts),
			zap.Duration("delay", d),
			zap.Error(err),
		)
	}
	return backoff.RetryNotifyWithTimer(operation, p.opts.Retry.backOff(ctx), notify, &clockTimer{clock: p.clock})
}
