package platforms

import (
	"context"
	"errors"
	"time"
)

var ErrPollTimeout = errors.New("timed out")

type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// SleepFirst waits one interval before the first check.
	SleepFirst bool
}

// poll runs check until it reports done, returns an error, or MaxAttempts
// checks have run. Exhausting the attempts returns ErrPollTimeout.
func poll(ctx context.Context, cfg PollConfig, check func(ctx context.Context) (bool, error)) error {
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if cfg.SleepFirst || attempt > 0 {
			if err := sleep(ctx, cfg.Interval); err != nil {
				return err
			}
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return ErrPollTimeout
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
