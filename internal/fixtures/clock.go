package fixtures

import (
	"context"
	"time"

	"github.com/tilinna/clock"
)

// NewMockClock attaches a clock.Mock starting at start to a context.
func NewMockClock(ctx context.Context, start time.Time) (context.Context, *clock.Mock) {
	clck := clock.NewMock(start)
	return clock.Context(ctx, clck), clck
}

// NextStep will advance the supplied clock.Mock until it moves, or the context.Context is canceled (which typically
// means it timed out in wall-time), and returns how far it moved.  This is useful when testing things that exist
// inside goroutines, when it's not possible to tell when the goroutine is ready to consume mock time.
func NextStep(ctx context.Context, clck *clock.Mock) time.Duration {
	_, d := clck.AddNext()
	for d == 0 && ctx.Err() == nil {
		time.Sleep(1) // Allows the system to actually idle, runtime.Gosched() does not.
		_, d = clck.AddNext()
	}
	return d
}
