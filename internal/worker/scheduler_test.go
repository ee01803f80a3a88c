package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/observability"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Today() time.Time {
	return time.Date(c.now.Year(), c.now.Month(), c.now.Day(), 0, 0, 0, 0, time.UTC)
}

func (c *fakeClock) set(value string) {
	parsed, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		panic(err)
	}
	c.now = parsed
}

func newTestScheduler(clk *fakeClock) *Scheduler {
	// Target 00:00, tolerance 90s, poll interval irrelevant for direct ticks.
	return NewScheduler(clk, 0, 90*time.Second, time.Minute, observability.NewMetrics(), zap.NewNop())
}

func TestScheduler_FiresOncePerDay(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)

	runs := 0
	s.Register("recompute", func(ctx context.Context, today time.Time) error {
		runs++
		return nil
	})

	ticks := []string{
		"2024-03-01 00:00:30", // in window, fires
		"2024-03-01 00:01:30", // same day, skipped
		"2024-03-01 12:00:00", // same day, skipped
		"2024-03-02 00:00:10", // next day, fires
		"2024-03-02 23:59:00", // same day, skipped
		"2024-03-03 00:01:00", // next day, fires
	}
	for _, at := range ticks {
		clk.set(at)
		s.tick(context.Background())
	}

	assert.Equal(t, 3, runs)
}

func TestScheduler_CatchUpAfterMissedWindow(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)

	var ranFor []string
	s.Register("recompute", func(ctx context.Context, today time.Time) error {
		ranFor = append(ranFor, today.Format("2006-01-02"))
		return nil
	})

	// First tick lands hours after the target: the job must still run today.
	clk.set("2024-03-01 09:17:00")
	s.tick(context.Background())

	assert.Equal(t, []string{"2024-03-01"}, ranFor)
}

func TestScheduler_BeforeWindowDoesNotFire(t *testing.T) {
	clk := &fakeClock{}
	s := NewScheduler(clk, 2*time.Hour, 90*time.Second, time.Minute, observability.NewMetrics(), zap.NewNop())

	runs := 0
	s.Register("recompute", func(ctx context.Context, today time.Time) error {
		runs++
		return nil
	})

	clk.set("2024-03-01 01:00:00")
	s.tick(context.Background())
	assert.Equal(t, 0, runs)

	clk.set("2024-03-01 01:59:00")
	s.tick(context.Background())
	assert.Equal(t, 1, runs)
}

func TestScheduler_FailedPassRetriesNextTick(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)

	attempts := 0
	s.Register("recompute", func(ctx context.Context, today time.Time) error {
		attempts++
		if attempts == 1 {
			return errors.New("storage unavailable")
		}
		return nil
	})

	clk.set("2024-03-01 00:00:30")
	s.tick(context.Background())
	assert.Equal(t, 1, attempts)

	// Checkpoint did not advance, so the same day fires again.
	clk.set("2024-03-01 00:01:30")
	s.tick(context.Background())
	assert.Equal(t, 2, attempts)

	// After success the rest of the day stays quiet.
	clk.set("2024-03-01 10:00:00")
	s.tick(context.Background())
	assert.Equal(t, 2, attempts)
}

func TestScheduler_JobsCheckpointIndependently(t *testing.T) {
	clk := &fakeClock{}
	s := newTestScheduler(clk)

	okRuns, failRuns := 0, 0
	s.Register("ok", func(ctx context.Context, today time.Time) error {
		okRuns++
		return nil
	})
	s.Register("flaky", func(ctx context.Context, today time.Time) error {
		failRuns++
		return errors.New("nope")
	})

	clk.set("2024-03-01 00:00:30")
	s.tick(context.Background())
	clk.set("2024-03-01 00:01:30")
	s.tick(context.Background())

	assert.Equal(t, 1, okRuns)
	assert.Equal(t, 2, failRuns)
}

func TestScheduler_StartStopsOnContextCancel(t *testing.T) {
	clk := &fakeClock{}
	clk.set("2024-03-01 12:00:00")
	s := NewScheduler(clk, 0, 90*time.Second, 5*time.Millisecond, observability.NewMetrics(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
