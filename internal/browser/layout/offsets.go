// internal/browser/layout/offsets.go
package layout

import (
	"math"

	"github.com/xkilldash9x/abspos/internal/browser/style"
)

// -- Offset resolution for out-of-flow boxes --
//
// Each axis is solved independently against
//   start + marginStart + edges + size + marginEnd + end = cbSize
// where edges is the sum of border and padding on that axis. Auto values are
// carried as NaN.

type axisConstraints struct {
	cbSize      float64
	start, end  float64
	size        float64
	marginStart float64
	marginEnd   float64
	edges       float64

	// staticOffset is the static position measured from the containing
	// block's start edge. When staticFromEnd is set it is measured from the
	// end edge and anchors the end offset instead.
	staticOffset  float64
	staticFromEnd bool

	// dropStart makes an over-constrained axis ignore the start offset
	// (rtl horizontal) instead of the end offset.
	dropStart bool
	// inline is set for the horizontal axis, where negative remaining space
	// is not split between two auto margins.
	inline bool

	// autoSize supplies the size when it is auto and not determined by the
	// offsets: shrink-to-fit horizontally, content height vertically.
	autoSize func(available float64) float64
}

type axisSolution struct {
	start, size, end       float64
	marginStart, marginEnd float64
}

func isAuto(v float64) bool { return math.IsNaN(v) }

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func solveAxis(c axisConstraints) axisSolution {
	start, end, size := c.start, c.end, c.size
	ms, me := c.marginStart, c.marginEnd

	availableFor := func(offsets float64) float64 {
		return math.Max(0, c.cbSize-offsets-orZero(ms)-orZero(me)-c.edges)
	}

	switch {
	case isAuto(start) && isAuto(end):
		ms, me = orZero(ms), orZero(me)
		if c.staticFromEnd {
			end = c.staticOffset
			if isAuto(size) {
				size = c.autoSize(availableFor(end))
			}
			start = c.cbSize - end - me - size - c.edges - ms
		} else {
			start = c.staticOffset
			if isAuto(size) {
				size = c.autoSize(availableFor(start))
			}
			end = c.cbSize - start - ms - size - c.edges - me
		}

	case isAuto(start) || isAuto(end):
		ms, me = orZero(ms), orZero(me)
		if isAuto(size) {
			size = c.autoSize(availableFor(orZero(start) + orZero(end)))
		}
		if isAuto(start) {
			start = c.cbSize - end - me - size - c.edges - ms
		} else {
			end = c.cbSize - start - ms - size - c.edges - me
		}

	default:
		if isAuto(size) {
			ms, me = orZero(ms), orZero(me)
			size = math.Max(0, c.cbSize-start-end-ms-me-c.edges)
		}
		remaining := c.cbSize - start - end - size - c.edges
		switch {
		case isAuto(ms) && isAuto(me):
			half := remaining / 2
			if half < 0 && c.inline {
				// Negative space is not shared: the margin on the ignored
				// side absorbs it.
				if c.dropStart {
					me, ms = 0, remaining
				} else {
					ms, me = 0, remaining
				}
			} else {
				ms, me = half, half
			}
		case isAuto(ms):
			ms = remaining - me
		case isAuto(me):
			me = remaining - ms
		}
		// Over-constrained: recompute the offset on the ignored side.
		if c.dropStart {
			start = c.cbSize - end - me - size - c.edges - ms
		} else {
			end = c.cbSize - start - ms - size - c.edges - me
		}
	}

	return axisSolution{start: start, size: size, end: end, marginStart: ms, marginEnd: me}
}

// autoOrResolve resolves a length against a definite reference, returning NaN
// for auto. Percentages against an indefinite reference also become auto.
func autoOrResolve(l style.Length, reference float64, definite bool) float64 {
	if v, ok := l.Resolve(reference, definite); ok {
		return v
	}
	return math.NaN()
}

// resolveAbsolute lays out an out-of-flow box whose static position has been
// recorded and whose containing block is final.
func (p *pass) resolveAbsolute(b *Box) error {
	if err := p.visit(b); err != nil {
		return err
	}
	cb, err := p.e.resolveContainingBlock(b)
	if err != nil {
		return err
	}
	b.cb, b.cbRect = cb.Box, cb
	cs := b.style

	p.resolveEdges(b, cb.Width)
	hEdges, vEdges := b.dims.horizontalEdges(), b.dims.verticalEdges()

	width := autoOrResolve(cs.Width, cb.Width, true)
	height := autoOrResolve(cs.Height, cb.Height, true)
	if cs.BoxSizing == style.BorderBox {
		if !isAuto(width) {
			width = math.Max(0, width-hEdges)
		}
		if !isAuto(height) {
			height = math.Max(0, height-vEdges)
		}
	}

	// -- Horizontal axis --
	h := axisConstraints{
		cbSize:      cb.Width,
		start:       autoOrResolve(cs.Left, cb.Width, true),
		end:         autoOrResolve(cs.Right, cb.Width, true),
		size:        width,
		marginStart: autoOrResolve(cs.MarginLeft, cb.Width, true),
		marginEnd:   autoOrResolve(cs.MarginRight, cb.Width, true),
		edges:       hEdges,
		dropStart:   cb.Direction == style.DirectionRTL,
		inline:      true,
		autoSize: func(available float64) float64 {
			minContent, maxContent := p.intrinsicWidths(b)
			return math.Min(math.Max(minContent, available), maxContent)
		},
	}
	if b.static.Direction == style.DirectionRTL && b.static.Context == BlockContext {
		h.staticFromEnd = true
		h.staticOffset = cb.X + cb.Width - b.static.X
	} else {
		h.staticOffset = b.static.X - cb.X
	}
	hs := solveAxis(h)

	b.dims.Content.Width = hs.size
	b.dims.Margin.Left, b.dims.Margin.Right = hs.marginStart, hs.marginEnd
	b.dims.Content.X = cb.X + hs.start + hs.marginStart + b.dims.Border.Left + b.dims.Padding.Left

	// -- Vertical axis --
	top := autoOrResolve(cs.Top, cb.Height, true)
	bottom := autoOrResolve(cs.Bottom, cb.Height, true)
	marginTop := autoOrResolve(cs.MarginTop, cb.Width, true)
	marginBottom := autoOrResolve(cs.MarginBottom, cb.Width, true)

	// The used height is known before laying out the content when it is
	// explicit or stretched between two offsets.
	b.definiteHeight = true
	switch {
	case !isAuto(height):
		b.dims.Content.Height = height
	case !isAuto(top) && !isAuto(bottom):
		b.dims.Content.Height = math.Max(0, cb.Height-top-bottom-orZero(marginTop)-orZero(marginBottom)-vEdges)
	default:
		b.definiteHeight = false
	}

	// Content is laid out at a provisional y and shifted once the vertical
	// equation is solved.
	provisionalY := cb.Y + b.dims.Border.Top + b.dims.Padding.Top
	b.dims.Content.Y = provisionalY
	p.pushScope(b)
	contentHeight, err := p.layoutBlockFlow(b)
	if err != nil {
		return err
	}

	vs := solveAxis(axisConstraints{
		cbSize:       cb.Height,
		start:        top,
		end:          bottom,
		size:         height,
		marginStart:  marginTop,
		marginEnd:    marginBottom,
		edges:        vEdges,
		staticOffset: b.static.Y - cb.Y,
		autoSize:     func(float64) float64 { return contentHeight },
	})

	b.dims.Content.Height = vs.size
	b.dims.Margin.Top, b.dims.Margin.Bottom = vs.marginStart, vs.marginEnd
	finalY := cb.Y + vs.start + vs.marginStart + b.dims.Border.Top + b.dims.Padding.Top
	b.dims.Content.Y = finalY
	translateFlow(b, 0, finalY-provisionalY)

	b.resolvedCB = cb
	b.resolvedStatic = b.static
	b.resolvedStyle = b.style
	p.stats.AbsoluteResolved++
	p.finish(b)

	// Out-of-flow descendants resolve only now that b is final.
	return p.popScope()
}

// relativeOffset returns the shift applied to an in-flow box with position
// relative. Opposing offsets are not both honoured: top wins over bottom and
// left over right (right over left in rtl).
func relativeOffset(cs style.ComputedStyle, cbWidth, cbHeight float64, heightDefinite bool) (dx, dy float64) {
	if cs.Position != style.PositionRelative {
		return 0, 0
	}
	left := autoOrResolve(cs.Left, cbWidth, true)
	right := autoOrResolve(cs.Right, cbWidth, true)
	top := autoOrResolve(cs.Top, cbHeight, heightDefinite)
	bottom := autoOrResolve(cs.Bottom, cbHeight, heightDefinite)

	switch {
	case !isAuto(left) && (isAuto(right) || cs.Direction == style.DirectionLTR):
		dx = left
	case !isAuto(right):
		dx = -right
	}
	switch {
	case !isAuto(top):
		dy = top
	case !isAuto(bottom):
		dy = -bottom
	}
	return dx, dy
}
