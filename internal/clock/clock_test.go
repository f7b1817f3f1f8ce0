package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleepFake(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)

	assert.NoError(t, Sleep(context.Background(), c, 5*time.Second))
	assert.NoError(t, Sleep(context.Background(), c, 0))
	assert.Equal(t, start.Add(5*time.Second), c.Now())
	assert.Equal(t, []time.Duration{5 * time.Second}, c.Sleeps())

	c.Advance(time.Minute)
	assert.Equal(t, start.Add(65*time.Second), c.Now())
}

func TestSleepCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, Real{}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepReal(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Sleep(context.Background(), Real{}, time.Millisecond))
}
