// internal/browser/jsbind/element.go
package jsbind

import (
	"math"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/internal/browser/layout"
	"github.com/xkilldash9x/abspos/internal/browser/style"
)

// Standard DOM node types.
const (
	elementNode = 1
	textNode    = 3
)

// nodeKey is the non-enumerable property holding the Go box behind a wrapper.
const nodeKey = "__box__"

// Wrap returns the JS object for a box, creating it on first use. A nil box
// is null.
func (b *DOMBridge) Wrap(box *layout.Box) goja.Value {
	if box == nil {
		return goja.Null()
	}
	if obj, ok := b.wrappers[box]; ok {
		return obj
	}
	e := &element{bridge: b, box: box}
	e.object = b.vm.NewObject()
	b.wrappers[box] = e.object
	e.define()
	return e.object
}

// Unwrap returns the box behind a wrapper object, or nil.
func (b *DOMBridge) Unwrap(v goja.Value) *layout.Box {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil
	}
	inner := obj.Get(nodeKey)
	if inner == nil {
		return nil
	}
	if e, ok := inner.Export().(*element); ok && e.bridge == b {
		return e.box
	}
	return nil
}

// mustUnwrap is Unwrap that throws an InvalidNodeError into the script.
func (b *DOMBridge) mustUnwrap(method string, v goja.Value) *layout.Box {
	box := b.Unwrap(v)
	if box == nil {
		b.throw(NewInvalidNodeError(method, v.String()))
	}
	return box
}

// element is the Go side of a node wrapper.
type element struct {
	bridge *DOMBridge
	box    *layout.Box
	object *goja.Object
	style  *goja.Object
}

func (e *element) define() {
	vm := e.bridge.vm
	e.object.DefineDataProperty(nodeKey, vm.ToValue(e), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)

	e.getter("parentNode", func() goja.Value { return e.bridge.Wrap(e.box.Parent()) })
	e.getter("childNodes", e.childNodes)
	e.getter("firstChild", func() goja.Value { return e.child(0) })
	e.getter("lastChild", func() goja.Value { return e.child(len(e.box.Children()) - 1) })
	e.getter("isConnected", func() goja.Value { return vm.ToValue(e.bridge.engine.Connected(e.box)) })

	if e.box.IsText() {
		e.object.Set("nodeType", textNode)
		e.object.Set("nodeName", "#text")
		e.accessor("data", e.textData, e.setTextData)
		e.accessor("nodeValue", e.textData, e.setTextData)
		e.accessor("textContent", e.textData, e.setTextData)
		return
	}

	tag := strings.ToUpper(e.box.Tag())
	e.object.Set("nodeType", elementNode)
	e.object.Set("nodeName", tag)
	e.object.Set("tagName", tag)
	e.accessor("id", func() goja.Value {
		id, _ := e.box.Attr("id")
		return vm.ToValue(id)
	}, func(v goja.Value) { e.box.SetAttr("id", v.String()) })

	e.object.Set("appendChild", e.appendChild)
	e.object.Set("insertBefore", e.insertBefore)
	e.object.Set("removeChild", e.removeChild)
	e.object.Set("getAttribute", e.getAttribute)
	e.object.Set("setAttribute", e.setAttribute)
	e.object.Set("getBoundingClientRect", e.getBoundingClientRect)

	e.getter("style", e.styleObject)
	e.getter("offsetLeft", func() goja.Value { return e.offset(func(x, _ float64) float64 { return x }) })
	e.getter("offsetTop", func() goja.Value { return e.offset(func(_, y float64) float64 { return y }) })
	e.getter("offsetWidth", func() goja.Value { return vm.ToValue(math.Round(e.geometry().Width)) })
	e.getter("offsetHeight", func() goja.Value { return vm.ToValue(math.Round(e.geometry().Height)) })
	e.getter("offsetParent", func() goja.Value {
		e.geometry()
		return e.bridge.Wrap(e.offsetParent())
	})
}

// getter defines a read-only accessor.
func (e *element) getter(name string, get func() goja.Value) {
	e.accessor(name, get, nil)
}

// accessor defines an enumerable accessor property. A nil setter makes the
// property read-only.
func (e *element) accessor(name string, get func() goja.Value, set func(goja.Value)) {
	vm := e.bridge.vm
	getterFunc := vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	setterFunc := goja.Undefined()
	if set != nil {
		setterFunc = vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	if err := e.object.DefineAccessorProperty(name, getterFunc, setterFunc, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		e.bridge.logger.Error("Failed to define accessor.", zap.String("property", name), zap.Error(err))
	}
}

func (e *element) child(i int) goja.Value {
	children := e.box.Children()
	if i < 0 || i >= len(children) {
		return goja.Null()
	}
	return e.bridge.Wrap(children[i])
}

func (e *element) childNodes() goja.Value {
	children := e.box.Children()
	wrapped := make([]interface{}, len(children))
	for i, c := range children {
		wrapped[i] = e.bridge.Wrap(c)
	}
	return e.bridge.vm.NewArray(wrapped...)
}

// --- Text nodes ---

func (e *element) textData() goja.Value {
	return e.bridge.vm.ToValue(e.box.Text())
}

func (e *element) setTextData(v goja.Value) {
	e.bridge.engine.SetText(e.box, v.String())
}

// --- Tree mutation ---

func (e *element) appendChild(call goja.FunctionCall) goja.Value {
	child := e.bridge.mustUnwrap("appendChild", call.Argument(0))
	if err := e.bridge.engine.AppendChild(e.box, child); err != nil {
		e.bridge.throw(err)
	}
	return call.Argument(0)
}

func (e *element) insertBefore(call goja.FunctionCall) goja.Value {
	child := e.bridge.mustUnwrap("insertBefore", call.Argument(0))
	var ref *layout.Box
	if refArg := call.Argument(1); !goja.IsNull(refArg) && !goja.IsUndefined(refArg) {
		ref = e.bridge.mustUnwrap("insertBefore", refArg)
	}
	if err := e.bridge.engine.InsertBefore(e.box, child, ref); err != nil {
		e.bridge.throw(err)
	}
	return call.Argument(0)
}

func (e *element) removeChild(call goja.FunctionCall) goja.Value {
	child := e.bridge.mustUnwrap("removeChild", call.Argument(0))
	if err := e.bridge.engine.RemoveChild(e.box, child); err != nil {
		e.bridge.throw(err)
	}
	return call.Argument(0)
}

// --- Attributes ---

func (e *element) getAttribute(call goja.FunctionCall) goja.Value {
	name := strings.ToLower(call.Argument(0).String())
	if name == "style" {
		return e.bridge.vm.ToValue(cssText(e.box))
	}
	if v, ok := e.box.Attr(name); ok {
		return e.bridge.vm.ToValue(v)
	}
	return goja.Null()
}

func (e *element) setAttribute(call goja.FunctionCall) goja.Value {
	name := strings.ToLower(call.Argument(0).String())
	value := call.Argument(1).String()
	if name == "style" {
		e.bridge.engine.SetStyleText(e.box, value)
	}
	e.box.SetAttr(name, value)
	return goja.Undefined()
}

// --- Geometry ---

// geometry runs a layout query, flushing whatever the box depends on. Layout
// errors surface as JS exceptions.
func (e *element) geometry() layout.Rect {
	g, err := e.bridge.engine.GetComputedGeometry(e.box)
	if err != nil {
		e.bridge.throw(err)
	}
	return layout.Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

func (e *element) getBoundingClientRect(goja.FunctionCall) goja.Value {
	r := e.geometry()
	obj := e.bridge.vm.NewObject()
	for name, v := range map[string]float64{
		"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height,
		"left": r.X, "top": r.Y, "right": r.X + r.Width, "bottom": r.Y + r.Height,
	} {
		obj.Set(name, v)
	}
	return obj
}

// offsetParent is the nearest positioned ancestor, or body. The computed
// styles it reads are current only after a geometry query.
func (e *element) offsetParent() *layout.Box {
	if e.box.Style().Position == style.PositionFixed {
		return nil
	}
	var body *layout.Box
	for a := e.box.Parent(); a != nil; a = a.Parent() {
		if a.Style().Position.EstablishesContainingBlock() {
			return a
		}
		if a.Tag() == "body" {
			body = a
		}
	}
	return body
}

// offset measures the border box from the offset parent's padding edge,
// rounded to whole pixels. Without a positioned offset parent it is measured
// from the document origin.
func (e *element) offset(axis func(x, y float64) float64) goja.Value {
	r := e.geometry()
	v := axis(r.X, r.Y)
	if p := e.offsetParent(); p != nil && p.Style().Position.EstablishesContainingBlock() {
		pad := p.Dimensions().PaddingBox()
		v -= axis(pad.X, pad.Y)
	}
	return e.bridge.vm.ToValue(math.Round(v))
}
