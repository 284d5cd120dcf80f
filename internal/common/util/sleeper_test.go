package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSleeper_ReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	DefaultSleeper{}.Sleep(context.Background(), time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}

func TestDefaultSleeper_ReturnsEarlyWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	DefaultSleeper{}.Sleep(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRecordingSleeper_RecordsWithoutWaiting(t *testing.T) {
	s := &RecordingSleeper{}
	s.Sleep(context.Background(), 5*time.Second)
	s.Sleep(context.Background(), time.Minute)
	assert.Equal(t, []time.Duration{5 * time.Second, time.Minute}, s.Slept)
}
