// internal/browser/timers/scheduler.go
package timers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"
	"go.uber.org/zap"
)

const (
	// DefaultFrameInterval is the spacing of frame ticks (about 60 per second).
	DefaultFrameInterval = 16 * time.Millisecond
	// MinInterval keeps repeating timers from firing forever at one instant.
	MinInterval = time.Millisecond
)

// ErrNotIdle is returned by RunUntilIdle when work is still pending after the
// time limit.
var ErrNotIdle = errors.New("timers: scheduler not idle within limit")

// Token identifies a scheduled timer or frame callback. The zero Token is
// never issued.
type Token uint64

// FrameHook runs at every frame tick before the frame callbacks, typically to
// flush layout. now is the tick's virtual time.
type FrameHook func(now time.Duration) error

// FrameCallback receives the tick timestamp in milliseconds.
type FrameCallback func(timestamp float64)

type timer struct {
	token    Token
	at       time.Duration
	seq      uint64
	interval time.Duration
	fn       func()
}

type frameRequest struct {
	token Token
	fn    FrameCallback
}

// Scheduler is a deterministic timer queue driven by a virtual clock. Time
// only moves when Advance, RunFor or RunUntilIdle is called; callbacks run on
// the caller's goroutine, in ascending fire time and then schedule order.
type Scheduler struct {
	mu     sync.Mutex
	logger *zap.Logger

	now       time.Duration
	seq       uint64
	lastToken Token

	queue *binaryheap.Heap
	live  map[Token]*timer

	frameInterval time.Duration
	nextFrame     time.Duration
	frames        []frameRequest
	inFlight      map[Token]bool
	frameHook     FrameHook
	ticks         uint64
	lastFrame     time.Duration
	framed        bool // the last event run was a frame tick
	hookErrs      []error
}

// Option is a function that configures a Scheduler.
type Option func(*Scheduler)

// WithFrameInterval sets the spacing of frame ticks. Non-positive values keep
// the default.
func WithFrameInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.frameInterval = d
		}
	}
}

// WithFrameHook registers the hook run before frame callbacks.
func WithFrameHook(h FrameHook) Option {
	return func(s *Scheduler) { s.frameHook = h }
}

// addSat adds d to t, saturating at the end of the representable timeline.
func addSat(t, d time.Duration) time.Duration {
	if d > 0 && t > math.MaxInt64-d {
		return math.MaxInt64
	}
	return t + d
}

// byFireTime orders timers by fire time, then by the order they were queued.
func byFireTime(a, b interface{}) int {
	ta, tb := a.(*timer), b.(*timer)
	switch {
	case ta.at < tb.at:
		return -1
	case ta.at > tb.at:
		return 1
	case ta.seq < tb.seq:
		return -1
	case ta.seq > tb.seq:
		return 1
	}
	return 0
}

// NewScheduler creates a scheduler with its clock at zero.
func NewScheduler(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		logger:        logger.Named("timers"),
		queue:         binaryheap.NewWith(byFireTime),
		live:          make(map[Token]*timer),
		frameInterval: DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nextFrame = s.frameInterval
	return s
}

// SetFrameHook replaces the frame hook.
func (s *Scheduler) SetFrameHook(h FrameHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameHook = h
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Ticks returns the number of frame ticks run so far.
func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Pending returns the number of live timers and frame callbacks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live) + len(s.frames)
}

func (s *Scheduler) newToken() Token {
	s.lastToken++
	return s.lastToken
}

func (s *Scheduler) push(t *timer) {
	s.seq++
	t.seq = s.seq
	s.queue.Push(t)
}

// Schedule runs fn once after delay. Negative delays count as zero.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) Token {
	return s.schedule(delay, 0, fn)
}

// ScheduleInterval runs fn every delay until cancelled. The interval is at
// least MinInterval.
func (s *Scheduler) ScheduleInterval(delay time.Duration, fn func()) Token {
	return s.schedule(delay, max(delay, MinInterval), fn)
}

func (s *Scheduler) schedule(delay, interval time.Duration, fn func()) Token {
	if delay < 0 {
		delay = 0
	}
	if interval > 0 {
		delay = interval
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &timer{token: s.newToken(), at: addSat(s.now, delay), interval: interval, fn: fn}
	s.live[t.token] = t
	s.push(t)
	s.logger.Debug("Timer scheduled.",
		zap.Uint64("token", uint64(t.token)),
		zap.Duration("fire_at", t.at),
		zap.Bool("repeating", interval > 0))
	return t.token
}

// Cancel stops a timer from firing. It reports whether a live timer was
// cancelled; unknown and zero tokens are ignored.
func (s *Scheduler) Cancel(token Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[token]; !ok {
		return false
	}
	// The heap entry is discarded when it reaches the top.
	delete(s.live, token)
	return true
}

// RequestFrame queues cb for the next frame tick.
func (s *Scheduler) RequestFrame(cb FrameCallback) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.newToken()
	s.frames = append(s.frames, frameRequest{token: token, fn: cb})
	return token
}

// CancelFrame removes a pending frame callback, including one queued for the
// tick currently running.
func (s *Scheduler) CancelFrame(token Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[token] {
		delete(s.inFlight, token)
		return true
	}
	for i, f := range s.frames {
		if f.token == token {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d, firing everything due on the way.
// Frame hook errors are logged and dropped; use RunFor to receive them.
func (s *Scheduler) Advance(d time.Duration) {
	_ = s.RunFor(context.Background(), d)
}

// RunFor is Advance with cancellation checked between callbacks. On
// cancellation the clock stays at the last event run.
func (s *Scheduler) RunFor(ctx context.Context, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("timers: negative duration %v", d)
	}
	s.mu.Lock()
	target := addSat(s.now, d)
	s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.step(target) {
			break
		}
	}

	s.mu.Lock()
	s.advanceTo(target)
	s.mu.Unlock()
	return s.takeHookErrors()
}

// RunUntilIdle runs timers and frames until none are pending, for at most
// limit of virtual time. Unless the last event run was already a frame tick at
// the current time, a final tick runs so the hook sees the last mutations. It
// returns the virtual time spent. Frame hook errors are returned joined after
// the run completes.
func (s *Scheduler) RunUntilIdle(ctx context.Context, limit time.Duration) (time.Duration, error) {
	s.mu.Lock()
	start := s.now
	deadline := addSat(s.now, limit)
	s.mu.Unlock()

	for s.Pending() > 0 {
		if err := ctx.Err(); err != nil {
			return s.Now() - start, errors.Join(err, s.takeHookErrors())
		}
		if !s.step(deadline) {
			s.mu.Lock()
			s.advanceTo(deadline)
			s.mu.Unlock()
			err := fmt.Errorf("%w: %d callbacks pending after %v", ErrNotIdle, s.Pending(), limit)
			return limit, errors.Join(err, s.takeHookErrors())
		}
	}

	s.mu.Lock()
	at, needed := s.now, !s.framed || s.lastFrame != s.now
	if needed && s.nextFrame == at {
		// The regular tick at this instant is consumed by the final one.
		s.nextFrame = addSat(s.nextFrame, s.frameInterval)
	}
	s.mu.Unlock()
	if needed {
		s.tick(at)
	}
	return s.Now() - start, s.takeHookErrors()
}

// advanceTo moves the clock to t. The clock never goes backwards. Callers
// hold s.mu.
func (s *Scheduler) advanceTo(t time.Duration) {
	if t > s.now {
		s.now = t
		s.framed = false
	}
}

// tick runs a frame at the given time and records a hook failure.
func (s *Scheduler) tick(at time.Duration) {
	err := s.runFrame(at)
	s.mu.Lock()
	s.lastFrame, s.framed = at, true
	if err != nil {
		s.hookErrs = append(s.hookErrs, err)
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("Frame hook failed.", zap.Duration("at", at), zap.Error(err))
	}
}

// takeHookErrors returns the frame hook errors recorded since the last call,
// joined, and clears them.
func (s *Scheduler) takeHookErrors() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := errors.Join(s.hookErrs...)
	s.hookErrs = nil
	return err
}

// step runs the next event due at or before target. Timers run before a frame
// tick that falls on the same instant. It reports false when nothing is due.
func (s *Scheduler) step(target time.Duration) bool {
	s.mu.Lock()
	t := s.peekLive()
	frameAt := s.nextFrame
	if t != nil && t.at <= target && t.at <= frameAt {
		s.queue.Pop()
		s.advanceTo(t.at)
		s.framed = false
		if t.interval > 0 && t.at < math.MaxInt64 {
			t.at = addSat(t.at, t.interval)
			s.push(t)
		} else {
			delete(s.live, t.token)
		}
		s.mu.Unlock()

		t.fn()
		return true
	}
	if frameAt <= target && !(s.framed && s.lastFrame == frameAt) {
		s.advanceTo(frameAt)
		s.nextFrame = addSat(s.nextFrame, s.frameInterval)
		s.mu.Unlock()

		s.tick(frameAt)
		return true
	}
	s.mu.Unlock()
	return false
}

// peekLive returns the earliest live timer, dropping cancelled entries.
func (s *Scheduler) peekLive() *timer {
	for {
		v, ok := s.queue.Peek()
		if !ok {
			return nil
		}
		t := v.(*timer)
		if live, ok := s.live[t.token]; ok && live == t {
			return t
		}
		s.queue.Pop()
	}
}

// runFrame flushes through the hook and then runs the frame callbacks queued
// before the tick. Callbacks requested during the tick wait for the next one.
func (s *Scheduler) runFrame(at time.Duration) error {
	s.mu.Lock()
	hook := s.frameHook
	frames := s.frames
	s.frames = nil
	s.inFlight = make(map[Token]bool, len(frames))
	for _, f := range frames {
		s.inFlight[f.token] = true
	}
	s.ticks++
	s.mu.Unlock()

	var hookErr error
	if hook != nil {
		if err := hook(at); err != nil {
			hookErr = fmt.Errorf("timers: frame hook: %w", err)
		}
	}
	timestamp := float64(at) / float64(time.Millisecond)
	for _, f := range frames {
		s.mu.Lock()
		live := s.inFlight[f.token]
		delete(s.inFlight, f.token)
		s.mu.Unlock()
		if live {
			f.fn(timestamp)
		}
	}
	return hookErr
}
