// internal/browser/layout/box.go
package layout

import (
	"strings"

	"github.com/google/uuid"

	"github.com/xkilldash9x/abspos/internal/browser/style"
)

// State is the position of a box in the dirty-tracking cycle.
type State int

const (
	StateClean State = iota
	StateDirty
	StateComputing
)

func (s State) String() string {
	switch s {
	case StateDirty:
		return "dirty"
	case StateComputing:
		return "computing"
	default:
		return "clean"
	}
}

// Kind distinguishes element boxes from anonymous text runs.
type Kind int

const (
	ElementBox Kind = iota
	TextBox
)

// StaticContext records which formatting context produced a static position.
type StaticContext int

const (
	BlockContext StaticContext = iota
	InlineContext
)

func (c StaticContext) String() string {
	if c == InlineContext {
		return "inline"
	}
	return "block"
}

// StaticPosition is the anchor an out-of-flow box falls back to when both
// offsets on an axis are auto. Direction is that of the box's parent; for rtl
// parents in a block context X is the content end edge.
type StaticPosition struct {
	Point
	Context   StaticContext
	Direction style.DirectionType
}

// Box is a node of the layout tree. The parent owns its children; the
// containing block reference is a non-owning back-reference refreshed on every
// layout of the box. Declarations are written only by the engine's mutation
// API and geometry only by a flush.
type Box struct {
	id    uuid.UUID
	kind  Kind
	tag   string
	text  string
	attrs map[string]string

	decls style.Declarations
	style style.ComputedStyle
	diags []style.Diagnostic

	parent   *Box
	children []*Box

	cb     *Box
	cbRect ContainingBlock
	static StaticPosition
	dims   Dimensions
	state  State

	laidOut        bool
	definiteHeight bool

	// Inputs of the last resolution of an out-of-flow box, compared against
	// fresh ones to decide whether the box can keep its geometry.
	resolvedCB     ContainingBlock
	resolvedStatic StaticPosition
	resolvedStyle  style.ComputedStyle
}

// NewElement creates a detached element box with the given inline declarations.
func NewElement(tag string, decls style.Declarations) *Box {
	if decls == nil {
		decls = style.Declarations{}
	}
	return &Box{
		id:    uuid.New(),
		kind:  ElementBox,
		tag:   strings.ToLower(tag),
		decls: decls.Clone(),
		attrs: make(map[string]string),
		state: StateDirty,
	}
}

// NewText creates a detached text run.
func NewText(text string) *Box {
	return &Box{
		id:    uuid.New(),
		kind:  TextBox,
		tag:   "#text",
		text:  text,
		attrs: make(map[string]string),
		state: StateDirty,
	}
}

func (b *Box) ID() uuid.UUID          { return b.id }
func (b *Box) Kind() Kind             { return b.kind }
func (b *Box) Tag() string            { return b.tag }
func (b *Box) Text() string           { return b.text }
func (b *Box) Parent() *Box           { return b.parent }
func (b *Box) State() State           { return b.state }
func (b *Box) IsText() bool           { return b.kind == TextBox }
func (b *Box) LaidOut() bool          { return b.laidOut }
func (b *Box) Dimensions() Dimensions { return b.dims }

// Style returns the computed style snapshot taken by the last flush.
func (b *Box) Style() style.ComputedStyle { return b.style }

// Diagnostics returns the declarations the last flush could not use.
func (b *Box) Diagnostics() []style.Diagnostic { return b.diags }

// Declarations returns a copy of the box's specified declarations.
func (b *Box) Declarations() style.Declarations { return b.decls.Clone() }

// Children returns a copy of the child list.
func (b *Box) Children() []*Box {
	out := make([]*Box, len(b.children))
	copy(out, b.children)
	return out
}

// ContainingBlock returns the containing block used by the last layout of an
// out-of-flow box. Box is nil for the initial containing block.
func (b *Box) ContainingBlock() ContainingBlock { return b.cbRect }

// StaticPosition returns the static position recorded by the last flush.
func (b *Box) StaticPosition() StaticPosition { return b.static }

// Geometry returns the cached border box without flushing.
func (b *Box) Geometry() Rect { return b.dims.BorderBox() }

// Attr returns an attribute value recorded by the tree builder.
func (b *Box) Attr(name string) (string, bool) {
	v, ok := b.attrs[strings.ToLower(name)]
	return v, ok
}

// SetAttr records an attribute. Only style-free attributes are kept here;
// inline styles go through the engine's mutation API.
func (b *Box) SetAttr(name, value string) {
	b.attrs[strings.ToLower(name)] = value
}

// Label is a short human readable identifier used in logs and errors.
func (b *Box) Label() string {
	if b == nil {
		return "<nil>"
	}
	if id, ok := b.attrs["id"]; ok && id != "" {
		return b.tag + "#" + id
	}
	return b.tag + "@" + b.id.String()[:8]
}

// Find walks the subtree in document order and returns the first box for
// which match returns true.
func (b *Box) Find(match func(*Box) bool) *Box {
	if match(b) {
		return b
	}
	for _, c := range b.children {
		if found := c.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// ElementByID returns the first descendant-or-self with the given id attribute.
func (b *Box) ElementByID(id string) *Box {
	return b.Find(func(c *Box) bool {
		v, ok := c.attrs["id"]
		return ok && v == id
	})
}

// Walk visits the subtree in document order.
func (b *Box) Walk(fn func(*Box)) {
	fn(b)
	for _, c := range b.children {
		c.Walk(fn)
	}
}

// Append adds children to a box that is not yet owned by an engine. Trees
// owned by an engine change through Engine.AppendChild and friends so that
// dirty tracking sees the change.
func (b *Box) Append(children ...*Box) *Box {
	for _, c := range children {
		c.detach()
		b.insertChildAt(c, len(b.children))
	}
	return b
}

// -- Tree classification --

func (b *Box) outOfFlow() bool {
	return b.kind == ElementBox && b.style.Position.OutOfFlow()
}

// isRelayoutBoundary reports whether changes inside the box cannot affect
// the layout of its ancestors.
func (b *Box) isRelayoutBoundary() bool {
	return b.parent == nil || b.outOfFlow()
}

func (b *Box) isInlineLevel() bool {
	if b.kind == TextBox {
		return true
	}
	return b.style.Display == style.DisplayInline || b.style.Display == style.DisplayInlineBlock
}

func (b *Box) hidden() bool {
	return b.kind == ElementBox && b.style.Display == style.DisplayNone
}

func (b *Box) isAncestorOf(o *Box) bool {
	for p := o.parent; p != nil; p = p.parent {
		if p == b {
			return true
		}
	}
	return false
}

// -- Structural operations. The engine wraps these with dirty marking. --

func (b *Box) indexOf(child *Box) int {
	for i, c := range b.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (b *Box) insertChildAt(child *Box, idx int) {
	child.parent = b
	b.children = append(b.children, nil)
	copy(b.children[idx+1:], b.children[idx:])
	b.children[idx] = child
}

func (b *Box) detach() {
	if b.parent == nil {
		return
	}
	if idx := b.parent.indexOf(b); idx >= 0 {
		b.parent.children = append(b.parent.children[:idx], b.parent.children[idx+1:]...)
	}
	b.parent = nil
}

// void discards the cached geometry of the subtree.
func (b *Box) void() {
	b.Walk(func(c *Box) {
		c.dims = Dimensions{}
		c.cb = nil
		c.cbRect = ContainingBlock{}
		c.static = StaticPosition{}
		c.laidOut = false
		c.state = StateDirty
	})
}
