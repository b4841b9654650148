// internal/browser/layout/static_position.go
package layout

import (
	"math"

	"github.com/xkilldash9x/abspos/internal/browser/style"
)

// -- Static positions --
//
// An out-of-flow box does not take part in its parent's flow, but the flow
// still records where the box would have been placed. Which anchor applies
// depends only on what precedes the box among its flow siblings: after inline
// content it is the current inline point, otherwise the block cursor. The
// box's own display plays no part.

// recordStatic stores the static position of an out-of-flow box and queues it
// for resolution once the enclosing relayout boundary is final.
func (p *pass) recordStatic(b *Box, pt Point, ctx StaticContext, dir style.DirectionType) {
	p.journal.record(b)
	b.static = StaticPosition{Point: pt, Context: ctx, Direction: dir}
	p.scope().pending = append(p.scope().pending, b)
}

// blockStaticPoint is the position of a hypothetical next block-level child:
// below the previous sibling's margin box, at the content start edge (the end
// edge for rtl containers).
func (p *pass) blockStaticPoint(container *Box, ctx *LayoutContext) Point {
	x := container.dims.Content.X
	if container.style.Direction == style.DirectionRTL {
		x += container.dims.Content.Width
	}
	return Point{X: x, Y: ctx.CurrentY + ctx.CalculateCollapsedMargin()}
}

// -- Inline formatting context --

// inlineRun places a sequence of inline-level boxes into line boxes. Text runs
// and atomic inline boxes break between fragments, never inside one.
type inlineRun struct {
	p         *pass
	container *Box

	lineStart, lineWidth float64
	lineY, lineHeight    float64
	x                    float64
	hasContent           bool

	// Accumulated relative offset of the inline elements being placed.
	shiftX, shiftY float64
}

// lineEpsilon absorbs rounding when a fragment exactly fills the line.
const lineEpsilon = 1e-9

func (p *pass) newInlineRun(container *Box, y float64) *inlineRun {
	return &inlineRun{
		p:         p,
		container: container,
		lineStart: container.dims.Content.X,
		lineWidth: container.dims.Content.Width,
		lineY:     y,
		x:         container.dims.Content.X,
	}
}

// point returns the current inline flow point: the end of the last inline
// content on the current line, at the top of that line.
func (r *inlineRun) point() Point {
	return Point{X: r.x + r.shiftX, Y: r.lineY + r.shiftY}
}

func (r *inlineRun) fits(w float64) bool {
	return !r.hasContent || r.x+w <= r.lineStart+r.lineWidth+lineEpsilon
}

func (r *inlineRun) newLine() {
	r.lineY += r.lineHeight
	r.lineHeight = 0
	r.x = r.lineStart
	r.hasContent = false
}

func (r *inlineRun) advance(w, h float64) {
	r.x += w
	r.lineHeight = math.Max(r.lineHeight, h)
	r.hasContent = true
}

// finish closes the last line and returns the block position below it.
func (r *inlineRun) finish() float64 {
	return r.lineY + r.lineHeight
}

func (r *inlineRun) place(b *Box) error {
	switch {
	case b.IsText():
		return r.placeText(b)
	case b.style.Display == style.DisplayInline:
		return r.placeInline(b)
	default:
		return r.placeAtomic(b)
	}
}

func (r *inlineRun) placeText(b *Box) error {
	if err := r.p.visit(b); err != nil {
		return err
	}
	text := collapseWhitespace(b.text)
	w, h := r.p.e.measurer.MeasureText(text, b.style.FontSize)
	if text == "" {
		w = 0
	}
	if !r.fits(w) {
		r.newLine()
	}
	b.dims = Dimensions{Content: Rect{X: r.x + r.shiftX, Y: r.lineY + r.shiftY, Width: w, Height: h}}
	if text != "" {
		r.advance(w, b.style.LineHeight)
	}
	r.p.finish(b)
	return nil
}

// placeInline flows a non-atomic inline element: its children join the
// current line and its box is the union of what it placed.
func (r *inlineRun) placeInline(b *Box) error {
	if err := r.p.visit(b); err != nil {
		return err
	}
	cbWidth := r.container.dims.Content.Width
	r.p.resolveEdges(b, cbWidth)
	b.dims.Margin = Edges{
		Left:  orZero(autoOrResolve(b.style.MarginLeft, cbWidth, true)),
		Right: orZero(autoOrResolve(b.style.MarginRight, cbWidth, true)),
	}
	d := &b.dims

	dx, dy := relativeOffset(b.style, cbWidth, r.container.dims.Content.Height, r.container.definiteHeight)
	r.shiftX += dx
	r.shiftY += dy

	lead := d.Margin.Left + d.Border.Left + d.Padding.Left
	if lead > 0 {
		r.advance(lead, 0)
	}
	start := r.point()
	bounds := Rect{X: start.X, Y: start.Y, Height: b.style.LineHeight}

	for _, child := range b.children {
		r.p.computeStyle(child, &b.style)
		switch {
		case child.hidden():
			r.p.hide(child)
			continue
		case child.outOfFlow():
			r.p.recordStatic(child, r.point(), InlineContext, r.container.style.Direction)
			continue
		case child.IsText() || child.style.Display == style.DisplayInline:
			if err := r.place(child); err != nil {
				return err
			}
		default:
			// Block-level boxes inside inline elements are placed atomically.
			if err := r.placeAtomic(child); err != nil {
				return err
			}
		}
		bounds = bounds.Union(child.dims.BorderBox())
	}

	end := r.point()
	bounds = bounds.Union(Rect{X: end.X, Y: end.Y, Height: b.style.LineHeight})
	d.Content = bounds

	trail := d.Padding.Right + d.Border.Right + d.Margin.Right
	if trail > 0 || len(b.children) > 0 || lead > 0 {
		r.advance(trail, b.style.LineHeight)
	}

	r.shiftX -= dx
	r.shiftY -= dy
	r.p.finish(b)
	return nil
}

// placeAtomic places an inline-block (or a block inside an inline element) as
// a single fragment sized by shrink-to-fit.
func (r *inlineRun) placeAtomic(b *Box) error {
	if err := r.p.visit(b); err != nil {
		return err
	}
	cbWidth, cbHeight := r.container.dims.Content.Width, r.container.dims.Content.Height
	r.p.resolveEdges(b, cbWidth)
	cs := b.style
	d := &b.dims
	d.Margin = Edges{
		Top:    orZero(autoOrResolve(cs.MarginTop, cbWidth, true)),
		Right:  orZero(autoOrResolve(cs.MarginRight, cbWidth, true)),
		Bottom: orZero(autoOrResolve(cs.MarginBottom, cbWidth, true)),
		Left:   orZero(autoOrResolve(cs.MarginLeft, cbWidth, true)),
	}
	hEdges := d.horizontalEdges()

	width := autoOrResolve(cs.Width, cbWidth, true)
	if isAuto(width) {
		available := math.Max(0, r.lineWidth-d.Margin.Left-d.Margin.Right-hEdges)
		minContent, maxContent := r.p.intrinsicWidths(b)
		width = math.Min(math.Max(minContent, available), maxContent)
	} else if cs.BoxSizing == style.BorderBox {
		width = math.Max(0, width-hEdges)
	}
	d.Content.Width = width

	outerWidth := d.Margin.Left + hEdges + width + d.Margin.Right
	if !r.fits(outerWidth) {
		r.newLine()
	}
	dx, dy := relativeOffset(cs, cbWidth, cbHeight, r.container.definiteHeight)
	d.Content.X = r.x + r.shiftX + dx + d.Margin.Left + d.Border.Left + d.Padding.Left
	d.Content.Y = r.lineY + r.shiftY + dy + d.Margin.Top + d.Border.Top + d.Padding.Top

	explicit := r.p.resolveExplicitHeight(b, cbHeight, r.container.definiteHeight)
	used, err := r.p.layoutBlockFlow(b)
	if err != nil {
		return err
	}
	if !explicit {
		d.Content.Height = used
	}

	r.advance(outerWidth, d.MarginBox().Height)
	r.p.finish(b)
	return nil
}
