package util

import (
	"context"
	"time"
)

// Sleeper abstracts fixed waits so orchestration tests can observe pauses
// instead of incurring them.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// DefaultSleeper waits on the wall clock, returning early on ctx cancellation.
type DefaultSleeper struct{}

func (DefaultSleeper) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RecordingSleeper records requested pauses without waiting.
type RecordingSleeper struct {
	Slept []time.Duration
}

func (s *RecordingSleeper) Sleep(_ context.Context, d time.Duration) {
	s.Slept = append(s.Slept, d)
}
