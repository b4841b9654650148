// internal/browser/layout/intrinsic.go
package layout

import (
	"math"
	"strings"

	"github.com/xkilldash9x/abspos/internal/browser/style"
)

// intrinsicWidths returns the min-content and max-content widths of b's
// content box. Out-of-flow children do not contribute. Percentages have no
// definite reference here and count as zero.
func (p *pass) intrinsicWidths(b *Box) (minContent, maxContent float64) {
	var lineMax float64
	for _, c := range b.children {
		p.computeStyle(c, &b.style)
		if c.hidden() || c.outOfFlow() {
			continue
		}
		if c.isInlineLevel() {
			cmin, cmax := p.inlineIntrinsic(c)
			minContent = math.Max(minContent, cmin)
			lineMax += cmax
			continue
		}
		maxContent = math.Max(maxContent, lineMax)
		lineMax = 0
		cmin, cmax := p.outerIntrinsic(c)
		minContent = math.Max(minContent, cmin)
		maxContent = math.Max(maxContent, cmax)
	}
	return minContent, math.Max(maxContent, lineMax)
}

func (p *pass) inlineIntrinsic(c *Box) (minContent, maxContent float64) {
	switch {
	case c.IsText():
		text := collapseWhitespace(c.text)
		if text == "" {
			return 0, 0
		}
		maxContent, _ = p.e.measurer.MeasureText(text, c.style.FontSize)
		for _, word := range strings.Fields(text) {
			w, _ := p.e.measurer.MeasureText(word, c.style.FontSize)
			minContent = math.Max(minContent, w)
		}
		return minContent, maxContent
	case c.style.Display == style.DisplayInline:
		cmin, cmax := p.intrinsicWidths(c)
		edges := fixedOuterEdges(c)
		return cmin + edges, cmax + edges
	default:
		return p.outerIntrinsic(c)
	}
}

// outerIntrinsic returns the margin-box contribution of an atomic or block
// child.
func (p *pass) outerIntrinsic(c *Box) (minContent, maxContent float64) {
	edges := fixedOuterEdges(c)
	if w, ok := c.style.Width.Resolve(0, false); ok {
		if c.style.BoxSizing == style.BorderBox {
			w = math.Max(w, c.style.BorderLeft+c.style.BorderRight+fixedPadding(c))
			edges -= c.style.BorderLeft + c.style.BorderRight + fixedPadding(c)
		}
		return w + edges, w + edges
	}
	cmin, cmax := p.intrinsicWidths(c)
	return cmin + edges, cmax + edges
}

func fixedPadding(c *Box) float64 {
	return c.style.PaddingLeft.ResolveOr(0, false, 0) + c.style.PaddingRight.ResolveOr(0, false, 0)
}

// fixedOuterEdges sums horizontal margins, borders and paddings that do not
// depend on the containing block.
func fixedOuterEdges(c *Box) float64 {
	margins := c.style.MarginLeft.ResolveOr(0, false, 0) + c.style.MarginRight.ResolveOr(0, false, 0)
	return margins + c.style.BorderLeft + c.style.BorderRight + fixedPadding(c)
}
