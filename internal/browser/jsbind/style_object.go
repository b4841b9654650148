// internal/browser/jsbind/style_object.go
package jsbind

import (
	"sort"
	"strings"

	"github.com/dop251/goja"

	"github.com/xkilldash9x/abspos/internal/browser/layout"
	"github.com/xkilldash9x/abspos/internal/browser/parser"
)

// styleDeclaration backs element.style. Property reads and writes go straight
// to the box's declarations through the engine, so every assignment marks the
// box dirty without doing layout work.
type styleDeclaration struct {
	bridge  *DOMBridge
	box     *layout.Box
	methods map[string]goja.Value
}

var _ goja.DynamicObject = (*styleDeclaration)(nil)

func (e *element) styleObject() goja.Value {
	if e.style == nil {
		s := &styleDeclaration{bridge: e.bridge, box: e.box}
		s.methods = map[string]goja.Value{
			"setProperty":      e.bridge.vm.ToValue(s.setProperty),
			"getPropertyValue": e.bridge.vm.ToValue(s.getPropertyValue),
			"removeProperty":   e.bridge.vm.ToValue(s.removeProperty),
		}
		e.style = e.bridge.vm.NewDynamicObject(s)
	}
	return e.style
}

// cssValue converts an assigned JS value to declaration text. null and
// undefined clear the property; numbers are written unitless.
func cssValue(v goja.Value) string {
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}

// cssText serializes the declarations of a box in property order.
func cssText(box *layout.Box) string {
	decls := box.Declarations()
	props := make([]string, 0, len(decls))
	for p := range decls {
		props = append(props, string(p))
	}
	sort.Strings(props)
	var sb strings.Builder
	for i, p := range props {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(p)
		sb.WriteString(": ")
		sb.WriteString(string(decls[parser.Property(p)]))
		sb.WriteByte(';')
	}
	return sb.String()
}

func (s *styleDeclaration) Get(key string) goja.Value {
	if m, ok := s.methods[key]; ok {
		return m
	}
	switch key {
	case "cssText":
		return s.bridge.vm.ToValue(cssText(s.box))
	case "length":
		return s.bridge.vm.ToValue(len(s.box.Declarations()))
	}
	prop := parser.PropertyFromCamel(key)
	return s.bridge.vm.ToValue(s.bridge.engine.StyleProperty(s.box, string(prop)))
}

func (s *styleDeclaration) Set(key string, val goja.Value) bool {
	if _, ok := s.methods[key]; ok {
		return false
	}
	if key == "cssText" {
		s.bridge.engine.SetStyleText(s.box, cssValue(val))
		return true
	}
	prop := parser.PropertyFromCamel(key)
	s.bridge.engine.SetStyleProperty(s.box, string(prop), cssValue(val))
	return true
}

func (s *styleDeclaration) Has(key string) bool {
	if _, ok := s.methods[key]; ok || key == "cssText" || key == "length" {
		return true
	}
	return s.bridge.engine.StyleProperty(s.box, string(parser.PropertyFromCamel(key))) != ""
}

func (s *styleDeclaration) Delete(key string) bool {
	if _, ok := s.methods[key]; ok {
		return false
	}
	s.bridge.engine.RemoveStyleProperty(s.box, string(parser.PropertyFromCamel(key)))
	return true
}

func (s *styleDeclaration) Keys() []string {
	decls := s.box.Declarations()
	keys := make([]string, 0, len(decls))
	for p := range decls {
		keys = append(keys, p.Camel())
	}
	sort.Strings(keys)
	return keys
}

// -- CSSStyleDeclaration methods, which take hyphenated names --

func (s *styleDeclaration) setProperty(call goja.FunctionCall) goja.Value {
	s.bridge.engine.SetStyleProperty(s.box, call.Argument(0).String(), cssValue(call.Argument(1)))
	return goja.Undefined()
}

func (s *styleDeclaration) getPropertyValue(call goja.FunctionCall) goja.Value {
	return s.bridge.vm.ToValue(s.bridge.engine.StyleProperty(s.box, call.Argument(0).String()))
}

func (s *styleDeclaration) removeProperty(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	old := s.bridge.engine.StyleProperty(s.box, name)
	s.bridge.engine.RemoveStyleProperty(s.box, name)
	return s.bridge.vm.ToValue(old)
}
