// internal/browser/timers/frame_test.go
package timers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/abspos/internal/browser/layout"
	"github.com/xkilldash9x/abspos/internal/browser/parser"
	"github.com/xkilldash9x/abspos/internal/browser/style"
	"github.com/xkilldash9x/abspos/internal/browser/timers"
)

// frameDriven returns an engine whose layout is flushed on every frame tick,
// with an absolutely positioned box directly under body.
func frameDriven(t *testing.T) (*layout.Engine, *timers.Scheduler, *layout.Box) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	abs := layout.NewElement("div", style.FromDeclarationList(parser.ParseDeclarations(
		"position: absolute; width: 300px; height: 300px")))
	root := layout.NewElement("html", nil).Append(layout.NewElement("body", nil).Append(abs))
	e := layout.NewEngine(root, logger)
	s := timers.NewScheduler(logger, timers.WithFrameHook(func(time.Duration) error { return e.Flush() }))
	return e, s, abs
}

func TestFrameTickFlushesLayout(t *testing.T) {
	e, s, abs := frameDriven(t)
	const H = layout.DefaultViewportHeight

	s.Schedule(100*time.Millisecond, func() { e.SetStyleProperty(abs, "bottom", "100px") })
	s.Schedule(300*time.Millisecond, func() { e.SetStyleProperty(abs, "bottom", "-200px") })

	s.Advance(50 * time.Millisecond)
	assert.Equal(t, layout.StateClean, abs.State())
	assert.Equal(t, 0.0, abs.Geometry().Y)

	// Read cached geometry only: the frame tick after 100ms did the flush.
	s.Advance(100 * time.Millisecond)
	assert.Equal(t, layout.StateClean, abs.State())
	assert.InDelta(t, H-100-300, abs.Geometry().Y, 1e-9)

	s.Advance(200 * time.Millisecond)
	assert.InDelta(t, H+200-300, abs.Geometry().Y, 1e-9)
	assert.Equal(t, "frame", e.Stats().Trigger)
}

func TestCancelledTimerLeavesLayoutUnchanged(t *testing.T) {
	e, s, abs := frameDriven(t)
	require.NoError(t, e.Flush())
	before := abs.Geometry()

	token := s.Schedule(100*time.Millisecond, func() { e.SetStyleProperty(abs, "left", "50px") })
	s.Schedule(50*time.Millisecond, func() { s.Cancel(token) })

	s.Advance(300 * time.Millisecond)
	assert.Equal(t, before, abs.Geometry())
	assert.Equal(t, "", e.StyleProperty(abs, "left"))
	assert.Equal(t, 0, e.Stats().Roots, "no frame after the cancellation had work to do")
}

func TestFrameCallbackSeesFlushedGeometry(t *testing.T) {
	e, s, abs := frameDriven(t)
	e.SetStyleProperty(abs, "left", "40px")

	var seen layout.Rect
	s.RequestFrame(func(float64) {
		// The hook flushed before callbacks ran, so no query is needed.
		assert.Equal(t, layout.StateClean, abs.State())
		seen = abs.Geometry()
	})
	s.Advance(timers.DefaultFrameInterval)
	assert.Equal(t, 40.0, seen.X)
}
