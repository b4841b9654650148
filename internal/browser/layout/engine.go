// internal/browser/layout/engine.go
package layout

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/api/schemas"
	"github.com/xkilldash9x/abspos/internal/browser/parser"
	"github.com/xkilldash9x/abspos/internal/browser/style"
)

const (
	DefaultViewportWidth  = 800.0
	DefaultViewportHeight = 600.0
	// DefaultMaxRevisits is how many times a box may be laid out again after
	// an in-flush invalidation before the flush fails.
	DefaultMaxRevisits = 1
)

// Engine owns a box tree and keeps its geometry up to date. It is single
// threaded: queries flush the dirty boxes they depend on, frame ticks flush
// everything, and mutations issued while a flush runs are deferred until it
// completes.
type Engine struct {
	root        *Box
	viewport    style.Viewport
	direction   style.DirectionType
	measurer    style.Measurer
	logger      *zap.Logger
	maxRevisits int
	observer    func(*Box)

	flushing bool
	pass     *pass
	deferred []func()
	stats    FlushStats
}

// Option is a function that configures an Engine.
type Option func(*Engine)

// WithViewport sets the size of the initial containing block.
func WithViewport(width, height float64) Option {
	return func(e *Engine) { e.viewport = style.Viewport{Width: width, Height: height} }
}

// WithDirection sets the writing direction of the initial containing block.
func WithDirection(dir style.DirectionType) Option {
	return func(e *Engine) { e.direction = dir }
}

// WithMeasurer replaces the text measurer.
func WithMeasurer(m style.Measurer) Option {
	return func(e *Engine) { e.measurer = m }
}

// WithMaxRevisits sets the revisit budget per box and flush.
func WithMaxRevisits(n int) Option {
	return func(e *Engine) { e.maxRevisits = n }
}

// WithObserver registers a callback invoked after each box is laid out. The
// callback may call Invalidate; any other mutation is deferred.
func WithObserver(fn func(*Box)) Option {
	return func(e *Engine) { e.observer = fn }
}

// NewEngine creates an engine for the tree rooted at root. A nil root gets an
// empty html element.
func NewEngine(root *Box, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if root == nil {
		root = NewElement("html", nil)
	}
	e := &Engine{
		root:        root,
		viewport:    style.Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		measurer:    style.NewMonospaceMeasurer(),
		logger:      logger.Named("layout"),
		maxRevisits: DefaultMaxRevisits,
	}
	for _, opt := range opts {
		opt(e)
	}
	root.Walk(func(b *Box) { b.state = StateDirty })
	return e
}

func (e *Engine) Root() *Box               { return e.root }
func (e *Engine) Viewport() style.Viewport { return e.viewport }
func (e *Engine) Flushing() bool           { return e.flushing }
func (e *Engine) Stats() FlushStats        { return e.stats }
func (e *Engine) Measurer() style.Measurer { return e.measurer }

// Connected reports whether b belongs to the engine's document.
func (e *Engine) Connected(b *Box) bool { return e.connected(b) }

// -- Query API --

// GetComputedGeometry returns the border box of b, first flushing the topmost
// dirty ancestor-or-self of b if there is one.
func (e *Engine) GetComputedGeometry(b *Box) (schemas.Geometry, error) {
	if e.flushing {
		return schemas.Geometry{}, ErrFlushInProgress
	}
	if !e.connected(b) {
		return schemas.Geometry{}, NewInvalidContainingBlockError(b, "box is not connected to the document")
	}
	var topmost *Box
	for a := b; a != nil; a = a.parent {
		if a.state != StateClean {
			topmost = a
		}
	}
	if topmost != nil {
		if err := e.flush([]*Box{topmost}, "query"); err != nil {
			return schemas.Geometry{}, err
		}
	}
	return b.dims.BorderBox().Geometry(), nil
}

// Flush lays out every dirty box. The frame scheduler calls it once per tick
// before running frame callbacks.
func (e *Engine) Flush() error {
	if e.flushing {
		return ErrFlushInProgress
	}
	var roots []*Box
	var collect func(*Box)
	collect = func(b *Box) {
		if b.state != StateClean {
			roots = append(roots, b)
			return
		}
		for _, c := range b.children {
			collect(c)
		}
	}
	collect(e.root)
	if len(roots) == 0 {
		e.stats = FlushStats{Trigger: "frame"}
		return nil
	}
	return e.flush(roots, "frame")
}

func (e *Engine) flush(roots []*Box, trigger string) error {
	e.flushing = true
	p := newPass(e, trigger)
	e.pass = p
	start := time.Now()
	defer func() {
		e.flushing = false
		e.pass = nil
		e.stats = *p.stats
		e.applyDeferred()
	}()

	for _, r := range roots {
		if r.state == StateClean {
			// Laid out by an earlier root of this flush.
			continue
		}
		r = boundaryOf(r)
		p.stats.Roots++
		if err := p.run(r); err != nil {
			e.logger.Warn("Layout flush aborted.",
				zap.String("trigger", trigger),
				zap.String("root", r.Label()),
				zap.Error(err))
			return err
		}
	}

	e.logger.Debug("Layout flush complete.",
		zap.String("trigger", trigger),
		zap.Int("roots", p.stats.Roots),
		zap.Int("boxes", p.stats.BoxesLaidOut),
		zap.Int("absolute_resolved", p.stats.AbsoluteResolved),
		zap.Int("absolute_skipped", p.stats.AbsoluteSkipped),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (e *Engine) applyDeferred() {
	pending := e.deferred
	e.deferred = nil
	for _, fn := range pending {
		fn()
	}
}

// mutate runs fn now, or after the running flush completes.
func (e *Engine) mutate(fn func()) {
	if e.flushing {
		e.deferred = append(e.deferred, fn)
		return
	}
	fn()
}

// -- Dirty marking --

// markDirty marks b and the ancestors whose layout depends on it. A change
// that moves b into or out of its parent's flow always reaches the parent.
func (e *Engine) markDirty(b *Box, flowChange bool) {
	b.state = StateDirty
	start := b
	if flowChange && b.parent != nil {
		start = b.parent
		start.state = StateDirty
	}
	for a := start; !a.isRelayoutBoundary(); a = a.parent {
		a.parent.state = StateDirty
	}
}

// Invalidate marks b dirty. Inside a flush the affected relayout boundary is
// laid out again before the flush completes.
func (e *Engine) Invalidate(b *Box) {
	if b == nil {
		return
	}
	e.markDirty(b, false)
	if e.flushing && e.pass != nil && e.connected(b) {
		e.pass.requeue = append(e.pass.requeue, boundaryOf(b))
	}
}

// -- Mutation API --

// affectsParentFlow lists properties whose change can move a box into or out
// of normal flow.
func affectsParentFlow(prop parser.Property) bool {
	switch prop {
	case "position", "display":
		return true
	}
	return false
}

func normalizeProperty(name string) parser.Property {
	return parser.Property(strings.ToLower(strings.TrimSpace(name)))
}

// SetStyleProperty sets a declaration on b and marks it dirty. No layout work
// is done. An empty value removes the declaration.
func (e *Engine) SetStyleProperty(b *Box, property, value string) {
	if b == nil || b.kind != ElementBox {
		return
	}
	prop := normalizeProperty(property)
	value = strings.TrimSpace(value)
	e.mutate(func() {
		if old, ok := b.decls.Get(prop); ok && string(old) == value {
			return
		}
		b.decls.Set(prop, parser.Value(value))
		e.markDirty(b, affectsParentFlow(prop))
	})
}

// RemoveStyleProperty removes a declaration (and the longhands of a shorthand).
func (e *Engine) RemoveStyleProperty(b *Box, property string) {
	if b == nil || b.kind != ElementBox {
		return
	}
	prop := normalizeProperty(property)
	e.mutate(func() {
		b.decls.Remove(prop)
		e.markDirty(b, affectsParentFlow(prop))
	})
}

// SetStyleText replaces all declarations of b with a parsed declaration block.
func (e *Engine) SetStyleText(b *Box, cssText string) {
	if b == nil || b.kind != ElementBox {
		return
	}
	decls := style.FromDeclarationList(parser.ParseDeclarations(cssText))
	e.mutate(func() {
		b.decls = decls
		e.markDirty(b, true)
	})
}

// StyleProperty returns the declared value of a property, or "".
func (e *Engine) StyleProperty(b *Box, property string) string {
	if b == nil || b.kind != ElementBox {
		return ""
	}
	v, _ := b.decls.Get(normalizeProperty(property))
	return string(v)
}

// SetText replaces the content of a text run.
func (e *Engine) SetText(b *Box, text string) {
	if b == nil || b.kind != TextBox {
		return
	}
	e.mutate(func() {
		b.text = text
		e.markDirty(b, false)
	})
}

// SetViewport resizes the initial containing block.
func (e *Engine) SetViewport(width, height float64) {
	e.mutate(func() {
		e.viewport = style.Viewport{Width: width, Height: height}
		e.markDirty(e.root, false)
		// Fixed boxes resolve against the viewport wherever they sit.
		e.root.Walk(func(b *Box) {
			if b.kind == ElementBox && b.style.Position == style.PositionFixed {
				e.markDirty(b, false)
			}
		})
	})
}

// -- Structural mutations --

func (e *Engine) checkInsert(op string, parent, child *Box) error {
	switch {
	case parent == nil || child == nil:
		return &HierarchyError{Op: op, Reason: "nil box"}
	case parent.kind == TextBox:
		return &HierarchyError{Op: op, Reason: "text runs cannot have children"}
	case child == e.root:
		return &HierarchyError{Op: op, Reason: "the root cannot be moved"}
	case child == parent || child.isAncestorOf(parent):
		return &HierarchyError{Op: op, Reason: "the new child contains the parent"}
	}
	return nil
}

// AppendChild appends child to parent, detaching it from its current parent.
func (e *Engine) AppendChild(parent, child *Box) error {
	if err := e.checkInsert("appendChild", parent, child); err != nil {
		return err
	}
	e.mutate(func() { e.insert(parent, child, nil) })
	return nil
}

// InsertBefore inserts child before ref. A nil ref appends.
func (e *Engine) InsertBefore(parent, child, ref *Box) error {
	if err := e.checkInsert("insertBefore", parent, child); err != nil {
		return err
	}
	if ref != nil && ref.parent != parent {
		return &HierarchyError{Op: "insertBefore", Reason: "reference box is not a child of the parent"}
	}
	e.mutate(func() { e.insert(parent, child, ref) })
	return nil
}

func (e *Engine) insert(parent, child, ref *Box) {
	if child == ref {
		return
	}
	if old := child.parent; old != nil {
		child.detach()
		e.markDirty(old, false)
	}
	idx := len(parent.children)
	if ref != nil {
		if i := parent.indexOf(ref); i >= 0 {
			idx = i
		}
	}
	parent.insertChildAt(child, idx)
	child.Walk(func(c *Box) { c.state = StateDirty })
	e.markDirty(parent, false)
}

// RemoveChild detaches child from parent and voids the subtree's geometry.
func (e *Engine) RemoveChild(parent, child *Box) error {
	if parent == nil || child == nil || child.parent != parent {
		return &HierarchyError{Op: "removeChild", Reason: "box is not a child of the parent"}
	}
	e.mutate(func() {
		if child.parent != parent {
			return
		}
		child.detach()
		child.void()
		e.markDirty(parent, false)
	})
	return nil
}
