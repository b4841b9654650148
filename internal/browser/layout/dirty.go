// internal/browser/layout/dirty.go
package layout

import (
	"github.com/xkilldash9x/abspos/internal/browser/style"
)

// FlushStats describes the work done by the most recent flush.
type FlushStats struct {
	Trigger          string
	Roots            int
	BoxesLaidOut     int
	AbsoluteResolved int
	AbsoluteSkipped  int
	Revisits         int
}

// -- Per-flush state --

// pass is the state of one flush. Geometry written during a pass is recorded
// in a journal so that an aborted flush root can be restored.
type pass struct {
	e       *Engine
	visits  map[*Box]int
	journal *journal
	scopes  []*scope
	requeue []*Box
	stats   *FlushStats
}

// scope collects the out-of-flow boxes found while laying out a relayout
// boundary. They are resolved after the boundary is final, in document order.
type scope struct {
	boundary *Box
	pending  []*Box
}

func newPass(e *Engine, trigger string) *pass {
	return &pass{
		e:      e,
		visits: make(map[*Box]int),
		stats:  &FlushStats{Trigger: trigger},
	}
}

func (p *pass) pushScope(b *Box) {
	p.scopes = append(p.scopes, &scope{boundary: b})
}

func (p *pass) scope() *scope {
	return p.scopes[len(p.scopes)-1]
}

// popScope closes the innermost scope and resolves its pending boxes. A clean
// box whose inputs did not change keeps its geometry.
func (p *pass) popScope() error {
	sc := p.scope()
	p.scopes = p.scopes[:len(p.scopes)-1]

	for _, b := range sc.pending {
		skip, err := p.canSkip(b)
		if err != nil {
			return err
		}
		if skip {
			p.stats.AbsoluteSkipped++
			if err := p.flushNestedDirty(b); err != nil {
				return err
			}
			continue
		}
		if err := p.resolveAbsolute(b); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) canSkip(b *Box) (bool, error) {
	if b.state != StateClean || !b.laidOut {
		return false, nil
	}
	if b.static != b.resolvedStatic || b.style != b.resolvedStyle {
		return false, nil
	}
	cb, err := p.e.resolveContainingBlock(b)
	if err != nil {
		return false, err
	}
	return cb == b.resolvedCB, nil
}

// flushNestedDirty lays out dirty relayout boundaries inside a subtree that is
// otherwise kept as is.
func (p *pass) flushNestedDirty(b *Box) error {
	for _, c := range b.children {
		if c.state != StateClean {
			if err := p.layoutBoundary(boundaryOf(c)); err != nil {
				return err
			}
			continue
		}
		if err := p.flushNestedDirty(c); err != nil {
			return err
		}
	}
	return nil
}

// visit marks the start of a layout of b and enforces the revisit budget.
func (p *pass) visit(b *Box) error {
	p.journal.record(b)
	p.visits[b]++
	n := p.visits[b]
	if n > 1 {
		p.stats.Revisits++
	}
	if n > 1+p.e.maxRevisits {
		return &CyclicLayoutDependencyError{BoxID: b.Label(), Visits: n}
	}
	b.state = StateComputing
	p.stats.BoxesLaidOut++
	return nil
}

// finish marks the end of a layout of b. A box invalidated while it was
// computing stays dirty until it is laid out again.
func (p *pass) finish(b *Box) {
	b.laidOut = true
	if b.state == StateComputing {
		b.state = StateClean
	}
	if p.e.observer != nil {
		p.e.observer(b)
	}
}

// hide gives a display:none subtree an empty geometry.
func (p *pass) hide(b *Box) {
	b.Walk(func(c *Box) {
		p.journal.record(c)
		c.dims = Dimensions{}
		c.laidOut = true
		// Forget the last resolution so a box shown again is recomputed.
		c.resolvedCB, c.resolvedStatic, c.resolvedStyle = ContainingBlock{}, StaticPosition{}, style.ComputedStyle{}
		c.state = StateClean
	})
}

// run lays out one flush root together with anything invalidated while doing
// so. On error every box touched by the run is restored and left dirty.
func (p *pass) run(root *Box) error {
	p.journal = newJournal()
	queue := []*Box{root}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		p.scopes = p.scopes[:0]
		if err := p.layoutBoundary(b); err != nil {
			p.journal.rollback()
			return err
		}
		queue = append(queue, p.requeue...)
		p.requeue = nil
	}
	p.journal.commit()
	return nil
}

// layoutBoundary lays out a relayout boundary: the root, or an out-of-flow box
// whose static position and containing block are still valid.
func (p *pass) layoutBoundary(b *Box) error {
	if b.parent == nil {
		if b != p.e.root {
			return NewInvalidContainingBlockError(b, "box is not connected to the document")
		}
		return p.layoutRoot(b)
	}
	for a := b.parent; a != nil; a = a.parent {
		if a.hidden() {
			p.hide(b)
			return nil
		}
	}
	p.computeStyle(b, &b.parent.style)
	if b.hidden() {
		p.hide(b)
		return nil
	}
	if !b.outOfFlow() {
		// The box entered normal flow since it was marked; its parent's flow
		// owns it now.
		return p.layoutBoundary(boundaryOf(b.parent))
	}
	return p.resolveAbsolute(b)
}

// boundaryOf returns the nearest relayout boundary at or above b.
func boundaryOf(b *Box) *Box {
	for !b.isRelayoutBoundary() {
		b = b.parent
	}
	return b
}

// -- Journal --

type snapshot struct {
	style          style.ComputedStyle
	diags          []style.Diagnostic
	dims           Dimensions
	cb             *Box
	cbRect         ContainingBlock
	static         StaticPosition
	laidOut        bool
	definiteHeight bool
	resolvedCB     ContainingBlock
	resolvedStatic StaticPosition
	resolvedStyle  style.ComputedStyle
}

type journal struct {
	saved map[*Box]snapshot
	order []*Box
}

func newJournal() *journal {
	return &journal{saved: make(map[*Box]snapshot)}
}

// record saves b's layout fields the first time the run touches it.
func (j *journal) record(b *Box) {
	if _, ok := j.saved[b]; ok {
		return
	}
	j.saved[b] = snapshot{
		style:          b.style,
		diags:          b.diags,
		dims:           b.dims,
		cb:             b.cb,
		cbRect:         b.cbRect,
		static:         b.static,
		laidOut:        b.laidOut,
		definiteHeight: b.definiteHeight,
		resolvedCB:     b.resolvedCB,
		resolvedStatic: b.resolvedStatic,
		resolvedStyle:  b.resolvedStyle,
	}
	j.order = append(j.order, b)
}

func (j *journal) rollback() {
	for _, b := range j.order {
		s := j.saved[b]
		b.style, b.diags, b.dims = s.style, s.diags, s.dims
		b.cb, b.cbRect, b.static = s.cb, s.cbRect, s.static
		b.laidOut, b.definiteHeight = s.laidOut, s.definiteHeight
		b.resolvedCB, b.resolvedStatic, b.resolvedStyle = s.resolvedCB, s.resolvedStatic, s.resolvedStyle
		b.state = StateDirty
	}
}

func (j *journal) commit() {
	for _, b := range j.order {
		b.state = StateClean
	}
}
