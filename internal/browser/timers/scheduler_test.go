// internal/browser/timers/scheduler_test.go
package timers_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/abspos/internal/browser/timers"
)

func newScheduler(t *testing.T, opts ...timers.Option) *timers.Scheduler {
	t.Helper()
	return timers.NewScheduler(zaptest.NewLogger(t), opts...)
}

func TestScheduleFiresAtDelay(t *testing.T) {
	s := newScheduler(t)
	var firedAt time.Duration = -1
	s.Schedule(100*time.Millisecond, func() { firedAt = s.Now() })

	s.Advance(99 * time.Millisecond)
	assert.Equal(t, time.Duration(-1), firedAt)

	s.Advance(time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, firedAt)
	assert.Equal(t, 100*time.Millisecond, s.Now())
}

func TestCancelledTimerNeverFires(t *testing.T) {
	s := newScheduler(t)
	var events []string

	token := s.Schedule(100*time.Millisecond, func() { events = append(events, "cancelled timer") })
	s.Schedule(120*time.Millisecond, func() { events = append(events, "resolve") })
	s.Schedule(50*time.Millisecond, func() {
		events = append(events, "clear")
		assert.True(t, s.Cancel(token))
	})

	s.Advance(time.Second)
	assert.Equal(t, []string{"clear", "resolve"}, events)
	assert.False(t, s.Cancel(token), "a cancelled timer cannot be cancelled twice")
}

func TestCancelUnknownTokens(t *testing.T) {
	s := newScheduler(t)
	assert.False(t, s.Cancel(0))
	assert.False(t, s.Cancel(12345))
	assert.False(t, s.CancelFrame(0))

	token := s.Schedule(0, func() {})
	s.Advance(0)
	assert.False(t, s.Cancel(token), "a fired timer is no longer live")
}

func TestOrderingByFireTimeThenScheduleOrder(t *testing.T) {
	s := newScheduler(t)
	var order []string
	record := func(name string) func() { return func() { order = append(order, name) } }

	s.Schedule(30*time.Millisecond, record("a@30"))
	s.Schedule(10*time.Millisecond, record("b@10"))
	s.Schedule(10*time.Millisecond, record("c@10"))
	s.Schedule(20*time.Millisecond, record("d@20"))
	s.Schedule(-5*time.Millisecond, record("e@0"))

	s.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"e@0", "b@10", "c@10", "d@20", "a@30"}, order)
}

func TestTimerScheduledFromCallbackRunsWhenDue(t *testing.T) {
	s := newScheduler(t)
	var firedAt []time.Duration
	s.Schedule(10*time.Millisecond, func() {
		firedAt = append(firedAt, s.Now())
		s.Schedule(5*time.Millisecond, func() { firedAt = append(firedAt, s.Now()) })
		s.Schedule(50*time.Millisecond, func() { firedAt = append(firedAt, s.Now()) })
	})

	s.Advance(20 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}, firedAt)
	assert.Equal(t, 1, s.Pending())
}

func TestIntervalRunsUntilCleared(t *testing.T) {
	s := newScheduler(t)
	count := 0
	var token timers.Token
	token = s.ScheduleInterval(10*time.Millisecond, func() {
		count++
		if count > 5 {
			s.Cancel(token)
		}
	})

	s.Advance(200 * time.Millisecond)
	assert.Equal(t, 6, count)
	assert.Equal(t, 0, s.Pending())
}

func TestZeroIntervalIsClamped(t *testing.T) {
	s := newScheduler(t)
	count := 0
	s.ScheduleInterval(0, func() { count++ })

	s.Advance(5 * time.Millisecond)
	assert.Equal(t, 5, count)
}

func TestFrameCallbacks(t *testing.T) {
	var log []string
	s := newScheduler(t, timers.WithFrameHook(func(now time.Duration) error {
		log = append(log, "hook")
		return nil
	}))

	var stamps []float64
	s.RequestFrame(func(ts float64) {
		log = append(log, "first")
		stamps = append(stamps, ts)
		s.RequestFrame(func(ts float64) {
			log = append(log, "next tick")
			stamps = append(stamps, ts)
		})
	})
	s.RequestFrame(func(ts float64) {
		log = append(log, "second")
		stamps = append(stamps, ts)
	})

	s.Advance(timers.DefaultFrameInterval)
	assert.Equal(t, []string{"hook", "first", "second"}, log)
	require.Len(t, stamps, 2)
	assert.Equal(t, stamps[0], stamps[1], "callbacks of one tick share a timestamp")
	assert.Equal(t, 16.0, stamps[0])

	s.Advance(timers.DefaultFrameInterval)
	assert.Equal(t, []string{"hook", "first", "second", "hook", "next tick"}, log)
	assert.Equal(t, 32.0, stamps[2])
	assert.Equal(t, uint64(2), s.Ticks())
}

func TestTimersRunBeforeFrameAtSameInstant(t *testing.T) {
	var order []string
	s := newScheduler(t, timers.WithFrameInterval(10*time.Millisecond), timers.WithFrameHook(func(time.Duration) error {
		order = append(order, "frame")
		return nil
	}))
	s.Schedule(10*time.Millisecond, func() { order = append(order, "timer") })

	s.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"timer", "frame"}, order)
}

func TestCancelFrame(t *testing.T) {
	s := newScheduler(t)
	ran := map[string]bool{}

	token := s.RequestFrame(func(float64) { ran["cancelled"] = true })
	assert.True(t, s.CancelFrame(token))

	var sibling timers.Token
	s.RequestFrame(func(float64) {
		ran["first"] = true
		assert.True(t, s.CancelFrame(sibling))
	})
	sibling = s.RequestFrame(func(float64) { ran["sibling"] = true })

	s.Advance(timers.DefaultFrameInterval)
	assert.Equal(t, map[string]bool{"first": true}, ran)
}

func TestFrameHookErrorDoesNotStopCallbacks(t *testing.T) {
	s := newScheduler(t, timers.WithFrameHook(func(time.Duration) error {
		return errors.New("layout failed")
	}))
	ran := false
	s.RequestFrame(func(float64) { ran = true })

	s.Advance(timers.DefaultFrameInterval)
	assert.True(t, ran)
}

func TestRunForReturnsFrameHookErrors(t *testing.T) {
	boom := errors.New("layout failed")
	calls := 0
	s := newScheduler(t, timers.WithFrameHook(func(now time.Duration) error {
		calls++
		if now == 2*timers.DefaultFrameInterval {
			return boom
		}
		return nil
	}))

	err := s.RunFor(context.Background(), 3*timers.DefaultFrameInterval)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls, "a failed tick does not stop the clock")
	assert.Equal(t, 3*timers.DefaultFrameInterval, s.Now())

	assert.NoError(t, s.RunFor(context.Background(), timers.DefaultFrameInterval), "errors are reported once")
}

func TestHugeDelaysSaturate(t *testing.T) {
	s := newScheduler(t)
	s.Advance(time.Millisecond)

	fired := false
	s.Schedule(time.Duration(math.MaxInt64), func() { fired = true })
	s.ScheduleInterval(time.Duration(math.MaxInt64-1), func() { fired = true })

	s.Advance(time.Millisecond)
	assert.False(t, fired)
	assert.Equal(t, 2*time.Millisecond, s.Now())
	assert.Equal(t, 2, s.Pending())
}

func TestRunUntilIdle(t *testing.T) {
	t.Run("Drains Chained Timers", func(t *testing.T) {
		s := newScheduler(t)
		hops := 0
		var hop func()
		hop = func() {
			hops++
			if hops < 3 {
				s.Schedule(100*time.Millisecond, hop)
			}
		}
		s.Schedule(100*time.Millisecond, hop)

		elapsed, err := s.RunUntilIdle(context.Background(), 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 3, hops)
		assert.Equal(t, 300*time.Millisecond, elapsed)
		assert.Equal(t, 0, s.Pending())
	})

	t.Run("Interval Never Idles", func(t *testing.T) {
		s := newScheduler(t)
		s.ScheduleInterval(10*time.Millisecond, func() {})

		elapsed, err := s.RunUntilIdle(context.Background(), time.Second)
		assert.ErrorIs(t, err, timers.ErrNotIdle)
		assert.Equal(t, time.Second, elapsed)
	})

	t.Run("Final Tick Not Repeated", func(t *testing.T) {
		var ticks []time.Duration
		s := newScheduler(t, timers.WithFrameHook(func(now time.Duration) error {
			ticks = append(ticks, now)
			return nil
		}))
		s.RequestFrame(func(float64) {})

		_, err := s.RunUntilIdle(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{16 * time.Millisecond}, ticks)
		assert.Equal(t, uint64(1), s.Ticks())
	})

	t.Run("Final Tick Consumes Boundary", func(t *testing.T) {
		var ticks []time.Duration
		s := newScheduler(t, timers.WithFrameHook(func(now time.Duration) error {
			ticks = append(ticks, now)
			return nil
		}))
		s.Schedule(32*time.Millisecond, func() {})

		elapsed, err := s.RunUntilIdle(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, 32*time.Millisecond, elapsed)

		s.Advance(16 * time.Millisecond)
		assert.Equal(t, []time.Duration{16 * time.Millisecond, 32 * time.Millisecond, 48 * time.Millisecond}, ticks)
	})

	t.Run("Final Tick Reports Hook Error", func(t *testing.T) {
		boom := errors.New("boom")
		s := newScheduler(t, timers.WithFrameHook(func(time.Duration) error { return boom }))
		_, err := s.RunUntilIdle(context.Background(), time.Second)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRunForHonoursContext(t *testing.T) {
	s := newScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	fired := 0
	s.Schedule(10*time.Millisecond, func() {
		fired++
		cancel()
	})
	s.Schedule(20*time.Millisecond, func() { fired++ })

	err := s.RunFor(ctx, 100*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 10*time.Millisecond, s.Now())

	assert.Error(t, s.RunFor(context.Background(), -time.Second))
}
