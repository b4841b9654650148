// internal/browser/jsbind/timers.go
package jsbind

import (
	"fmt"
	"math"
	"time"

	"github.com/dop251/goja"

	"github.com/xkilldash9x/abspos/internal/browser/timers"
)

// initTimers binds the timer and animation frame functions to the scheduler.
// Callbacks run when the scheduler's clock is advanced.
func (b *DOMBridge) initTimers() {
	global := b.vm.GlobalObject()
	b.setOrLog(global, "setTimeout", b.timerFunc("timeout", b.scheduler.Schedule))
	b.setOrLog(global, "setInterval", b.timerFunc("interval", b.scheduler.ScheduleInterval))
	b.setOrLog(global, "clearTimeout", b.clearFunc(b.scheduler.Cancel))
	b.setOrLog(global, "clearInterval", b.clearFunc(b.scheduler.Cancel))
	b.setOrLog(global, "requestAnimationFrame", b.requestAnimationFrame)
	b.setOrLog(global, "cancelAnimationFrame", b.clearFunc(b.scheduler.CancelFrame))
}

// timerFunc builds setTimeout or setInterval. Extra arguments are passed to
// the callback; a missing or non-numeric delay is zero.
func (b *DOMBridge) timerFunc(kind string, schedule func(time.Duration, func()) timers.Token) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			b.throw(fmt.Errorf("%s: callback is not a function", kind))
		}
		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}

		var token timers.Token
		token = schedule(delayOf(call.Argument(1)), func() {
			if _, err := fn(goja.Undefined(), args...); err != nil {
				b.recordCallbackError(&CallbackError{Kind: kind, Token: uint64(token), Err: err})
			}
		})
		return b.vm.ToValue(uint64(token))
	}
}

// clearFunc builds clearTimeout, clearInterval and cancelAnimationFrame. Any
// value that is not a live token is ignored.
func (b *DOMBridge) clearFunc(cancel func(timers.Token) bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).ToFloat()
		if id >= 1 && id == math.Trunc(id) && !math.IsInf(id, 0) {
			cancel(timers.Token(id))
		}
		return goja.Undefined()
	}
}

func (b *DOMBridge) requestAnimationFrame(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		b.throw(fmt.Errorf("requestAnimationFrame: callback is not a function"))
	}
	var token timers.Token
	token = b.scheduler.RequestFrame(func(timestamp float64) {
		if _, err := fn(goja.Undefined(), b.vm.ToValue(timestamp)); err != nil {
			b.recordCallbackError(&CallbackError{Kind: "frame", Token: uint64(token), Err: err})
		}
	})
	return b.vm.ToValue(uint64(token))
}

// delayOf converts a JS delay in milliseconds.
func delayOf(v goja.Value) time.Duration {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	ms := v.ToFloat()
	if math.IsNaN(ms) || ms < 0 {
		return 0
	}
	if ms > float64(math.MaxInt64/int64(time.Millisecond)) {
		ms = float64(math.MaxInt64 / int64(time.Millisecond))
	}
	return time.Duration(ms * float64(time.Millisecond))
}
