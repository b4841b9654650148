// internal/browser/layout/flow.go
package layout

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/internal/browser/style"
)

// -- Normal flow (block formatting context) --

// LayoutContext tracks the block-direction cursor of a block container and the
// adjoining vertical margins that have not been committed yet.
type LayoutContext struct {
	CurrentY          float64
	MaxNegativeMargin float64
	MaxPositiveMargin float64
	IsEmpty           bool
}

func NewLayoutContext(startY float64) *LayoutContext {
	return &LayoutContext{
		CurrentY: startY,
		IsEmpty:  true,
	}
}

// AddToMarginTotals records an adjoining margin. Positive and negative margins
// collapse separately and are summed when committed.
func (lc *LayoutContext) AddToMarginTotals(margin float64) {
	if margin > 0 {
		lc.MaxPositiveMargin = math.Max(lc.MaxPositiveMargin, margin)
	} else if margin < lc.MaxNegativeMargin {
		lc.MaxNegativeMargin = margin
	}
}

func (lc *LayoutContext) CalculateCollapsedMargin() float64 {
	return lc.MaxPositiveMargin + lc.MaxNegativeMargin
}

func (lc *LayoutContext) ResetMargins() {
	lc.MaxNegativeMargin = 0
	lc.MaxPositiveMargin = 0
}

// computeStyle snapshots the box's declarations. It is the only place the
// engine reads declarations, so mutations made between flushes coalesce.
func (p *pass) computeStyle(b *Box, parent *style.ComputedStyle) {
	p.journal.record(b)
	if b.kind == TextBox {
		b.style = style.TextStyle(parent)
		b.diags = nil
		return
	}
	cs, diags := style.Compute(b.tag, b.decls, parent, p.e.viewport)
	for _, d := range diags {
		p.e.logger.Debug("Ignoring style declaration.",
			zap.String("box", b.Label()),
			zap.Stringer("diagnostic", d))
	}
	b.style, b.diags = cs, diags
}

// resolveEdges resolves padding and border widths. Percentages refer to the
// containing block width on both axes.
func (p *pass) resolveEdges(b *Box, cbWidth float64) {
	cs := b.style
	pad := func(l style.Length) float64 { return math.Max(0, l.ResolveOr(cbWidth, true, 0)) }
	b.dims.Padding = Edges{
		Top:    pad(cs.PaddingTop),
		Right:  pad(cs.PaddingRight),
		Bottom: pad(cs.PaddingBottom),
		Left:   pad(cs.PaddingLeft),
	}
	b.dims.Border = Edges{
		Top:    cs.BorderTop,
		Right:  cs.BorderRight,
		Bottom: cs.BorderBottom,
		Left:   cs.BorderLeft,
	}
}

// calculateBlockWidthAndEdges solves the horizontal equation of an in-flow
// block-level box against its parent's content width.
func (p *pass) calculateBlockWidthAndEdges(b *Box, referenceWidth float64, dir style.DirectionType) {
	p.resolveEdges(b, referenceWidth)
	cs := b.style

	width := autoOrResolve(cs.Width, referenceWidth, true)
	marginLeft := autoOrResolve(cs.MarginLeft, referenceWidth, true)
	marginRight := autoOrResolve(cs.MarginRight, referenceWidth, true)
	totalStatic := b.dims.horizontalEdges()

	if cs.BoxSizing == style.BorderBox && !isAuto(width) {
		width = math.Max(0, width-totalStatic)
	}

	switch {
	case isAuto(width):
		marginLeft, marginRight = orZero(marginLeft), orZero(marginRight)
		width = referenceWidth - totalStatic - marginLeft - marginRight
		if width < 0 {
			width = 0
			marginRight = referenceWidth - totalStatic - marginLeft
		}
	case isAuto(marginLeft) && isAuto(marginRight):
		remaining := referenceWidth - totalStatic - width
		marginLeft, marginRight = remaining/2, remaining/2
	case isAuto(marginLeft):
		marginLeft = referenceWidth - totalStatic - width - marginRight
	case isAuto(marginRight):
		marginRight = referenceWidth - totalStatic - width - marginLeft
	default:
		// Over-constrained: the end margin gives way.
		if dir == style.DirectionRTL {
			marginLeft = referenceWidth - totalStatic - width - marginRight
		} else {
			marginRight = referenceWidth - totalStatic - width - marginLeft
		}
	}

	b.dims.Content.Width = width
	b.dims.Margin.Left = marginLeft
	b.dims.Margin.Right = marginRight
	b.dims.Margin.Top = orZero(autoOrResolve(cs.MarginTop, referenceWidth, true))
	b.dims.Margin.Bottom = orZero(autoOrResolve(cs.MarginBottom, referenceWidth, true))
}

// resolveExplicitHeight applies a non-auto height before the content is laid
// out, so descendants can resolve percentages against it. It reports whether
// the height was set.
func (p *pass) resolveExplicitHeight(b *Box, cbHeight float64, cbDefinite bool) bool {
	h, ok := b.style.Height.Resolve(cbHeight, cbDefinite)
	if !ok {
		b.definiteHeight = false
		return false
	}
	if b.style.BoxSizing == style.BorderBox {
		h -= b.dims.verticalEdges()
	}
	b.dims.Content.Height = math.Max(0, h)
	b.definiteHeight = true
	return true
}

// layoutRoot lays out the root box as a block in the initial containing block.
func (p *pass) layoutRoot(b *Box) error {
	icb, err := p.e.initialContainingBlock()
	if err != nil {
		return err
	}
	p.computeStyle(b, nil)
	if b.hidden() {
		p.hide(b)
		return nil
	}
	if b.outOfFlow() {
		b.static = StaticPosition{Direction: icb.Direction}
		return p.resolveAbsolute(b)
	}

	if err := p.visit(b); err != nil {
		return err
	}
	p.pushScope(b)
	b.cb, b.cbRect = nil, icb

	p.calculateBlockWidthAndEdges(b, icb.Width, icb.Direction)
	b.dims.Content.X = icb.X + b.dims.Margin.Left + b.dims.Border.Left + b.dims.Padding.Left
	b.dims.Content.Y = icb.Y + b.dims.Margin.Top + b.dims.Border.Top + b.dims.Padding.Top
	dx, dy := relativeOffset(b.style, icb.Width, icb.Height, true)
	b.dims.Content.X += dx
	b.dims.Content.Y += dy

	explicit := p.resolveExplicitHeight(b, icb.Height, true)
	used, err := p.layoutBlockFlow(b)
	if err != nil {
		return err
	}
	if !explicit {
		b.dims.Content.Height = used
	}
	p.finish(b)
	return p.popScope()
}

// layoutBlockBox completes an in-flow block-level box whose width, edges and
// position have been set by its parent's flow.
func (p *pass) layoutBlockBox(b, parent *Box) error {
	cbWidth, cbHeight := parent.dims.Content.Width, parent.dims.Content.Height
	dx, dy := relativeOffset(b.style, cbWidth, cbHeight, parent.definiteHeight)
	b.dims.Content.X += dx
	b.dims.Content.Y += dy

	explicit := p.resolveExplicitHeight(b, cbHeight, parent.definiteHeight)
	used, err := p.layoutBlockFlow(b)
	if err != nil {
		return err
	}
	if !explicit {
		b.dims.Content.Height = used
	}
	p.finish(b)
	return nil
}

// layoutBlockFlow lays out the children of a block container starting at its
// content box top and returns the height they occupy. Consecutive
// inline-level children share line boxes; out-of-flow children only get their
// static position recorded and are resolved once the enclosing relayout
// boundary is complete.
func (p *pass) layoutBlockFlow(b *Box) (float64, error) {
	ctx := NewLayoutContext(b.dims.Content.Y)
	var run *inlineRun

	for _, child := range b.children {
		p.computeStyle(child, &b.style)

		if child.hidden() || (child.IsText() && collapseWhitespace(child.text) == "") {
			p.hide(child)
			continue
		}

		if child.outOfFlow() {
			if run != nil {
				p.recordStatic(child, run.point(), InlineContext, b.style.Direction)
			} else {
				p.recordStatic(child, p.blockStaticPoint(b, ctx), BlockContext, b.style.Direction)
			}
			continue
		}

		if child.isInlineLevel() {
			if run == nil {
				ctx.CurrentY += ctx.CalculateCollapsedMargin()
				ctx.ResetMargins()
				run = p.newInlineRun(b, ctx.CurrentY)
			}
			if err := run.place(child); err != nil {
				return 0, err
			}
			continue
		}

		if run != nil {
			ctx.CurrentY = run.finish()
			ctx.IsEmpty = false
			run = nil
		}

		if err := p.visit(child); err != nil {
			return 0, err
		}
		p.calculateBlockWidthAndEdges(child, b.dims.Content.Width, b.style.Direction)
		d := &child.dims

		ctx.AddToMarginTotals(d.Margin.Top)
		collapsedTopMargin := ctx.CalculateCollapsedMargin()
		d.Content.X = b.dims.Content.X + d.Margin.Left + d.Border.Left + d.Padding.Left
		d.Content.Y = ctx.CurrentY + collapsedTopMargin + d.Border.Top + d.Padding.Top

		if err := p.layoutBlockBox(child, b); err != nil {
			return 0, err
		}

		// Advance by the unshifted box: relative offsets do not affect flow.
		ctx.IsEmpty = false
		ctx.CurrentY += collapsedTopMargin + d.Border.Top + d.Padding.Top +
			d.Content.Height +
			d.Padding.Bottom + d.Border.Bottom
		ctx.ResetMargins()
		ctx.AddToMarginTotals(d.Margin.Bottom)
	}

	if run != nil {
		ctx.CurrentY = run.finish()
	}
	ctx.CurrentY += ctx.CalculateCollapsedMargin()
	return ctx.CurrentY - b.dims.Content.Y, nil
}

// translateFlow shifts the in-flow descendants of b, and the static positions
// of its pending out-of-flow descendants, by (dx, dy).
func translateFlow(b *Box, dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	for _, c := range b.children {
		if c.hidden() {
			continue
		}
		if c.outOfFlow() {
			c.static.X += dx
			c.static.Y += dy
			continue
		}
		c.dims.Content.X += dx
		c.dims.Content.Y += dy
		translateFlow(c, dx, dy)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
