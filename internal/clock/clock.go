package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time and waiting so retry delays can be driven in tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return RealClock{} }),
)

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
