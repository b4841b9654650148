// internal/browser/jsexec/runtime.go
package jsexec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/internal/browser/jsbind"
	"github.com/xkilldash9x/abspos/internal/browser/layout"
	"github.com/xkilldash9x/abspos/internal/browser/timers"
)

const (
	// DefaultTimeout is the fallback wall-clock execution timeout if the
	// context has no deadline.
	DefaultTimeout = 30 * time.Second
	// DefaultPromiseLimit is how much virtual time may pass while waiting for
	// a returned Promise to settle.
	DefaultPromiseLimit = time.Minute
	// promiseStep is the clock increment used while waiting for a Promise.
	promiseStep = time.Millisecond
)

// ScriptError is an exception thrown by a script. Its message carries the JS
// stack trace.
type ScriptError struct {
	Exception *goja.Exception
}

func (e *ScriptError) Error() string {
	return "javascript exception: " + e.Exception.String()
}

// Unwrap exposes the exception, and through it any Go error it wraps.
func (e *ScriptError) Unwrap() error {
	return e.Exception
}

// Runtime is a goja VM bound to a layout engine and a virtual-clock scheduler.
// Script execution and clock advancement are serialized; timer callbacks run
// on the goroutine that advances the clock.
type Runtime struct {
	vm        *goja.Runtime
	bridge    *jsbind.DOMBridge
	engine    *layout.Engine
	scheduler *timers.Scheduler
	logger    *zap.Logger

	timeout      time.Duration
	promiseLimit time.Duration
	onFrame      func(now time.Duration)

	execMutex sync.Mutex
}

// Option is a function that configures a Runtime.
type Option func(*Runtime)

// WithTimeout sets the wall-clock timeout used when a context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithPromiseLimit sets the virtual time budget for settling a Promise.
func WithPromiseLimit(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.promiseLimit = d
		}
	}
}

// WithFrameObserver registers fn to run after each frame tick's layout flush
// succeeds and before animation frame callbacks.
func WithFrameObserver(fn func(now time.Duration)) Option {
	return func(r *Runtime) { r.onFrame = fn }
}

// NewRuntime creates a VM with the DOM bindings installed and wires the
// scheduler's frame hook to the engine, so every frame tick flushes layout
// before animation frame callbacks run.
func NewRuntime(logger *zap.Logger, engine *layout.Engine, scheduler *timers.Scheduler, opts ...Option) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("jsexec")

	vm := goja.New()
	r := &Runtime{
		vm:           vm,
		bridge:       jsbind.NewDOMBridge(vm, logger, engine, scheduler),
		engine:       engine,
		scheduler:    scheduler,
		logger:       log,
		timeout:      DefaultTimeout,
		promiseLimit: DefaultPromiseLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	scheduler.SetFrameHook(r.frame)
	return r
}

func (r *Runtime) frame(now time.Duration) error {
	if err := r.engine.Flush(); err != nil {
		return err
	}
	if r.onFrame != nil {
		r.onFrame(now)
	}
	return nil
}

func (r *Runtime) Bridge() *jsbind.DOMBridge    { return r.bridge }
func (r *Runtime) Engine() *layout.Engine       { return r.engine }
func (r *Runtime) Scheduler() *timers.Scheduler { return r.scheduler }

// withDeadline applies the default timeout to contexts without a deadline.
func (r *Runtime) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// interruptOn interrupts the VM when ctx is done. The returned function must
// be called before the next execution; it clears any pending interrupt.
func (r *Runtime) interruptOn(ctx context.Context) func() {
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		r.vm.Interrupt(ctx.Err())
	})
	return func() {
		if !stop() {
			<-fired
		}
		r.vm.ClearInterrupt()
	}
}

// classify converts a goja error into the runtime's error vocabulary.
func classify(ctx context.Context, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("javascript execution interrupted by context: %w", ctxErr)
		}
		return fmt.Errorf("javascript execution interrupted: %w", err)
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &ScriptError{Exception: exc}
	}
	return fmt.Errorf("javascript error: %w", err)
}

// ExecuteScript runs a JavaScript snippet in the persistent VM. A function
// wrapper is called with args. A returned Promise is awaited by advancing the
// virtual clock until it settles.
func (r *Runtime) ExecuteScript(ctx context.Context, script string, args []interface{}) (interface{}, error) {
	r.execMutex.Lock()
	defer r.execMutex.Unlock()

	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	defer r.interruptOn(ctx)()

	var result goja.Value
	var err error
	if isFunctionWrapper(script) {
		result, err = r.executeFunctionWrapper(script, args)
	} else {
		if len(args) > 0 {
			r.logger.Debug("Arguments provided to ExecuteScript in snippet mode are ignored.")
		}
		result, err = r.vm.RunString(script)
	}
	if err != nil {
		return nil, classify(ctx, err)
	}

	if promise, ok := result.Export().(*goja.Promise); ok {
		return r.waitForPromise(ctx, promise)
	}
	return result.Export(), nil
}

// isFunctionWrapper uses heuristics to detect common function wrappers.
func isFunctionWrapper(script string) bool {
	s := strings.TrimSpace(script)
	if len(s) < 5 {
		return false
	}
	return strings.HasPrefix(s, "(function") || strings.HasPrefix(s, "(async function") ||
		strings.HasPrefix(s, "function") || strings.HasPrefix(s, "async function") ||
		strings.HasPrefix(s, "(()=>") || strings.HasPrefix(s, "(() =>") || strings.HasPrefix(s, "(async (")
}

func (r *Runtime) executeFunctionWrapper(script string, args []interface{}) (goja.Value, error) {
	prog, err := goja.Compile("", script, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile function wrapper script: %w", err)
	}
	val, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, fmt.Errorf("script did not evaluate to a callable function wrapper")
	}
	gojaArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		gojaArgs[i] = r.vm.ToValue(arg)
	}
	return fn(r.vm.GlobalObject(), gojaArgs...)
}

// waitForPromise advances the virtual clock until the promise settles, the
// promise limit is spent, or ctx is done. Frame ticks on the way flush layout.
func (r *Runtime) waitForPromise(ctx context.Context, promise *goja.Promise) (interface{}, error) {
	deadline := r.scheduler.Now() + r.promiseLimit
	for promise.State() == goja.PromiseStatePending {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context done while waiting for promise: %w", err)
		}
		if r.scheduler.Now() >= deadline {
			return nil, fmt.Errorf("promise still pending after %v of virtual time", r.promiseLimit)
		}
		if err := r.scheduler.RunFor(ctx, promiseStep); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("context done while waiting for promise: %w", err)
			}
			return nil, fmt.Errorf("layout flush failed while waiting for promise: %w", err)
		}
	}

	if promise.State() == goja.PromiseStateRejected {
		reason := promise.Result()
		if obj, ok := reason.(*goja.Object); ok {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				return nil, fmt.Errorf("javascript promise rejected: %s", stack.String())
			}
		}
		return nil, fmt.Errorf("javascript promise rejected: %v", reason.Export())
	}
	return promise.Result().Export(), nil
}

// RunFor advances the virtual clock by d, running due timers, intervals and
// frame ticks. Exceptions thrown by callbacks and layout flush failures on
// frame ticks are returned joined; they do not stop the clock.
func (r *Runtime) RunFor(ctx context.Context, d time.Duration) error {
	r.execMutex.Lock()
	defer r.execMutex.Unlock()

	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	defer r.interruptOn(ctx)()

	if err := r.scheduler.RunFor(ctx, d); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("javascript execution interrupted by context: %w", ctxErr)
		}
		return errors.Join(err, r.callbackErrors(ctx))
	}
	return r.callbackErrors(ctx)
}

// RunUntilIdle runs callbacks until no timers or frame requests remain, or
// until limit of virtual time has passed.
func (r *Runtime) RunUntilIdle(ctx context.Context, limit time.Duration) (time.Duration, error) {
	r.execMutex.Lock()
	defer r.execMutex.Unlock()

	ctx, cancel := r.withDeadline(ctx)
	defer cancel()
	defer r.interruptOn(ctx)()

	elapsed, err := r.scheduler.RunUntilIdle(ctx, limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return elapsed, fmt.Errorf("javascript execution interrupted by context: %w", ctxErr)
		}
		return elapsed, errors.Join(err, r.callbackErrors(ctx))
	}
	return elapsed, r.callbackErrors(ctx)
}

func (r *Runtime) callbackErrors(ctx context.Context) error {
	err := r.bridge.TakeCallbackErrors()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("javascript execution interrupted by context: %w", ctxErr)
	}
	return err
}
