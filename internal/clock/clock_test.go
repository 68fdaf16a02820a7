package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockSleepAdvancesAndRecords(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	assert.NoError(t, c.Sleep(context.Background(), 2*time.Second))
	assert.NoError(t, c.Sleep(context.Background(), 2*time.Second))

	assert.Equal(t, start.Add(4*time.Second), c.Now())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, c.Sleeps())
}

func TestRealClockSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RealClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
