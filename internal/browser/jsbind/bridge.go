// internal/browser/jsbind/bridge.go
package jsbind

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/abspos/internal/browser/layout"
	"github.com/xkilldash9x/abspos/internal/browser/timers"
)

// DefaultEpoch is the wall-clock instant reported by Date.now at virtual time
// zero.
var DefaultEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DOMBridge exposes a layout engine's box tree, style declarations and the
// virtual-clock timers to a goja runtime. All calls must come from the
// goroutine that drives the runtime.
type DOMBridge struct {
	vm        *goja.Runtime
	logger    *zap.Logger
	engine    *layout.Engine
	scheduler *timers.Scheduler
	epoch     time.Time

	// Identity map: a box is always represented by the same JS object.
	wrappers map[*layout.Box]*goja.Object

	mu             sync.Mutex
	callbackErrors []error

	document *goja.Object
}

// BridgeOption configures a DOMBridge.
type BridgeOption func(*DOMBridge)

// WithEpoch sets the wall-clock time reported at virtual time zero.
func WithEpoch(t time.Time) BridgeOption {
	return func(b *DOMBridge) { b.epoch = t }
}

// NewDOMBridge binds window, document, console and the timer functions into
// vm. The engine's root must be an html element with a body.
func NewDOMBridge(vm *goja.Runtime, logger *zap.Logger, engine *layout.Engine, scheduler *timers.Scheduler, opts ...BridgeOption) *DOMBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &DOMBridge{
		vm:        vm,
		logger:    logger.Named("jsbind"),
		engine:    engine,
		scheduler: scheduler,
		epoch:     DefaultEpoch,
		wrappers:  make(map[*layout.Box]*goja.Object),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.initializeRuntime()
	return b
}

// initializeRuntime sets the global objects of the JS context.
func (b *DOMBridge) initializeRuntime() {
	global := b.vm.GlobalObject()
	b.document = b.newDocument()

	b.setOrLog(global, "window", global)
	b.setOrLog(global, "self", global)
	b.setOrLog(global, "document", b.document)
	b.setOrLog(global, "innerWidth", b.engine.Viewport().Width)
	b.setOrLog(global, "innerHeight", b.engine.Viewport().Height)

	b.initConsole()
	b.initTimers()
	b.initClock()
}

func (b *DOMBridge) setOrLog(obj *goja.Object, name string, value interface{}) {
	if err := obj.Set(name, value); err != nil {
		b.logger.Error("Failed to set property.", zap.String("property", name), zap.Error(err))
	}
}

// Engine returns the layout engine the bridge mutates.
func (b *DOMBridge) Engine() *layout.Engine { return b.engine }

// Scheduler returns the timer scheduler backing setTimeout and friends.
func (b *DOMBridge) Scheduler() *timers.Scheduler { return b.scheduler }

// TakeCallbackErrors returns and clears the errors thrown by callbacks since
// the last call, joined into one error.
func (b *DOMBridge) TakeCallbackErrors() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := errors.Join(b.callbackErrors...)
	b.callbackErrors = nil
	return err
}

func (b *DOMBridge) recordCallbackError(err *CallbackError) {
	b.logger.Warn("Script callback threw.",
		zap.String("kind", err.Kind),
		zap.Uint64("token", err.Token),
		zap.Error(err.Err))
	b.mu.Lock()
	b.callbackErrors = append(b.callbackErrors, err)
	b.mu.Unlock()
}

// throw raises err as a JS exception. It never returns.
func (b *DOMBridge) throw(err error) {
	panic(b.vm.NewGoError(err))
}

// --- Document Object ---

func (b *DOMBridge) newDocument() *goja.Object {
	d := b.vm.NewObject()
	root := b.engine.Root()

	d.Set("documentElement", b.Wrap(root))
	d.DefineAccessorProperty("body", b.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return b.Wrap(root.Find(func(x *layout.Box) bool { return x.Tag() == "body" }))
	}), goja.Undefined(), goja.FLAG_FALSE, goja.FLAG_TRUE)

	d.Set("createElement", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		return b.Wrap(layout.NewElement(tag, nil))
	})
	d.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return b.Wrap(layout.NewText(call.Argument(0).String()))
	})
	d.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return b.Wrap(root.ElementByID(call.Argument(0).String()))
	})
	return d
}

// --- Console ---

// initConsole routes console output to the logger.
func (b *DOMBridge) initConsole() {
	console := b.vm.NewObject()
	logFunc := func(level zapcore.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = b.stringify(arg)
			}
			b.logger.Log(level, "[JS Console]", zap.String("message", strings.Join(args, " ")))
			return goja.Undefined()
		}
	}

	console.Set("log", logFunc(zap.InfoLevel))
	console.Set("info", logFunc(zap.InfoLevel))
	console.Set("warn", logFunc(zap.WarnLevel))
	console.Set("error", logFunc(zap.ErrorLevel))
	console.Set("debug", logFunc(zap.DebugLevel))

	b.setOrLog(b.vm.GlobalObject(), "console", console)
}

// stringify uses JSON.stringify for plain objects and arrays.
func (b *DOMBridge) stringify(arg goja.Value) string {
	if obj, ok := arg.(*goja.Object); ok && obj.ClassName() != "Function" {
		if jsJSON := b.vm.Get("JSON"); jsJSON != nil && !goja.IsUndefined(jsJSON) {
			if stringify, ok := goja.AssertFunction(jsJSON.ToObject(b.vm).Get("stringify")); ok {
				if result, err := stringify(goja.Undefined(), arg); err == nil && !goja.IsUndefined(result) {
					return result.String()
				}
			}
		}
	}
	return arg.String()
}

// --- Clock ---

// initClock binds Date.now and performance.now to the virtual clock.
func (b *DOMBridge) initClock() {
	if date, ok := b.vm.Get("Date").(*goja.Object); ok {
		b.setOrLog(date, "now", func(goja.FunctionCall) goja.Value {
			return b.vm.ToValue(b.epoch.Add(b.scheduler.Now()).UnixMilli())
		})
	}
	performance := b.vm.NewObject()
	performance.Set("now", func(goja.FunctionCall) goja.Value {
		return b.vm.ToValue(float64(b.scheduler.Now()) / float64(time.Millisecond))
	})
	b.setOrLog(b.vm.GlobalObject(), "performance", performance)
}
