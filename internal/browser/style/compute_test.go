package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/abspos/internal/browser/parser"
)

var testViewport = Viewport{Width: 800, Height: 600}

func declsOf(css string) Declarations {
	return FromDeclarationList(parser.ParseDeclarations(css))
}

func TestComputeDefaults(t *testing.T) {
	cs, diags := Compute("div", nil, nil, testViewport)
	assert.Empty(t, diags)

	assert.Equal(t, DisplayBlock, cs.Display)
	assert.Equal(t, PositionStatic, cs.Position)
	assert.Equal(t, DirectionLTR, cs.Direction)
	assert.True(t, cs.Left.IsAuto())
	assert.True(t, cs.Width.IsAuto())
	assert.Equal(t, Px(0), cs.MarginTop)
	assert.Equal(t, Px(0), cs.PaddingLeft)
	// The initial border style is none, so medium width contributes nothing.
	assert.Equal(t, 0.0, cs.BorderTop)
	assert.Equal(t, BaseFontSize, cs.FontSize)
	assert.InDelta(t, 19.2, cs.LineHeight, 0.001) // 16 * 1.2

	span, _ := Compute("span", nil, nil, testViewport)
	assert.Equal(t, DisplayInline, span.Display)
}

func TestComputePositioned(t *testing.T) {
	cs, diags := Compute("div", declsOf("position: absolute; left: 50px; bottom: 10%; width: 100px; margin: auto"), nil, testViewport)
	assert.Empty(t, diags)

	assert.Equal(t, PositionAbsolute, cs.Position)
	assert.True(t, cs.Position.OutOfFlow())
	assert.True(t, cs.Position.EstablishesContainingBlock())
	assert.Equal(t, Px(50), cs.Left)
	assert.Equal(t, Percent(10), cs.Bottom)
	assert.True(t, cs.Top.IsAuto())
	assert.Equal(t, Px(100), cs.Width)
	assert.True(t, cs.MarginLeft.IsAuto())
	assert.True(t, cs.MarginRight.IsAuto())

	rel, _ := Compute("div", declsOf("position: relative"), nil, testViewport)
	assert.False(t, rel.Position.OutOfFlow())
	assert.True(t, rel.Position.EstablishesContainingBlock())

	sticky, _ := Compute("div", declsOf("position: sticky"), nil, testViewport)
	assert.Equal(t, PositionRelative, sticky.Position)
}

func TestComputeMalformedFallsBack(t *testing.T) {
	cs, diags := Compute("div", declsOf("position: floating; left: 1x0px; width: -20px; top: 5px"), nil, testViewport)

	assert.Equal(t, PositionStatic, cs.Position)
	assert.True(t, cs.Left.IsAuto())
	assert.True(t, cs.Width.IsAuto())
	// Well-formed neighbours are unaffected.
	assert.Equal(t, Px(5), cs.Top)

	props := make([]parser.Property, 0, len(diags))
	for _, d := range diags {
		props = append(props, d.Property)
	}
	assert.ElementsMatch(t, []parser.Property{"position", "left", "width"}, props)
	for _, d := range diags {
		if d.Property == "width" {
			assert.Equal(t, parser.Value("auto"), d.Fallback)
			assert.Contains(t, d.String(), "negative value")
		}
	}
}

func TestComputeUnitlessLengths(t *testing.T) {
	cs, diags := Compute("div", declsOf("position: absolute; left: 100; width: 50; top: 0; margin-left: 0"), nil, testViewport)

	assert.True(t, cs.Left.IsAuto())
	assert.True(t, cs.Width.IsAuto())
	assert.Equal(t, Px(0), cs.Top)
	assert.Equal(t, Px(0), cs.MarginLeft)

	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, parser.Value("auto"), d.Fallback)
		assert.Contains(t, d.String(), "missing unit")
	}
}

func TestComputeShorthands(t *testing.T) {
	t.Run("Margin/Padding (1-4 values)", func(t *testing.T) {
		cs, _ := Compute("div", declsOf("margin: 10px; padding: 5px 20px; border-width: 1px 2px 3px; border-style: solid"), nil, testViewport)

		assert.Equal(t, Px(10), cs.MarginTop)
		assert.Equal(t, Px(10), cs.MarginLeft)
		assert.Equal(t, Px(5), cs.PaddingTop)
		assert.Equal(t, Px(20), cs.PaddingRight)
		assert.Equal(t, 1.0, cs.BorderTop)
		assert.Equal(t, 2.0, cs.BorderLeft) // Left mirrors Right (3 values)
		assert.Equal(t, 3.0, cs.BorderBottom)
	})

	t.Run("Border Shorthand", func(t *testing.T) {
		cs, _ := Compute("div", declsOf("border: 1px solid black"), nil, testViewport)
		assert.Equal(t, 1.0, cs.BorderTop)
		assert.Equal(t, 1.0, cs.BorderRight)

		cs, _ = Compute("div", declsOf("border: solid"), nil, testViewport)
		assert.Equal(t, 3.0, cs.BorderLeft) // medium
	})

	t.Run("Explicit Longhand Wins", func(t *testing.T) {
		cs, _ := Compute("div", declsOf("margin-left: 7px; margin: 1px"), nil, testViewport)
		assert.Equal(t, Px(7), cs.MarginLeft)
		assert.Equal(t, Px(1), cs.MarginRight)
	})

	t.Run("Inset", func(t *testing.T) {
		cs, _ := Compute("div", declsOf("inset: 0 auto"), nil, testViewport)
		assert.Equal(t, Px(0), cs.Top)
		assert.True(t, cs.Right.IsAuto())
		assert.Equal(t, Px(0), cs.Bottom)
	})
}

func TestDeclarationsSet(t *testing.T) {
	d := declsOf("margin-left: 7px; top: 1px")

	// Assigning the shorthand replaces previously declared longhands.
	d.Set("margin", "2px")
	_, ok := d.Get("margin-left")
	assert.False(t, ok)
	cs, _ := Compute("div", d, nil, testViewport)
	assert.Equal(t, Px(2), cs.MarginLeft)

	// An empty assignment removes the declaration.
	d.Set("top", "")
	_, ok = d.Get("top")
	assert.False(t, ok)

	d.Remove("margin")
	assert.Empty(t, d)
	assert.Len(t, Longhands("inset"), 4)
}

func TestInheritanceAndResolution(t *testing.T) {
	parent, _ := Compute("div", declsOf("font-size: 20px; direction: rtl"), nil, testViewport)
	child, diags := Compute("p", declsOf("font-size: 1.5em; line-height: 1.2; margin-left: 2em"), &parent, testViewport)
	require.Empty(t, diags)

	t.Run("Relative Unit Resolution (em)", func(t *testing.T) {
		assert.Equal(t, 20.0, parent.FontSize)
		// Child: 1.5em * 20px = 30px
		assert.Equal(t, 30.0, child.FontSize)
		// Margins resolve against the element's own font size: 2 * 30px.
		assert.Equal(t, Px(60), child.MarginLeft)
	})

	t.Run("Line Height Resolution (unitless)", func(t *testing.T) {
		// Resolved line-height: 1.2 * 30px = 36px.
		assert.InDelta(t, 36.0, child.LineHeight, 0.001)
	})

	t.Run("Direction Inherits", func(t *testing.T) {
		assert.Equal(t, DirectionRTL, child.Direction)
		text := TextStyle(&child)
		assert.Equal(t, DirectionRTL, text.Direction)
		assert.Equal(t, DisplayInline, text.Display)
		assert.Equal(t, 30.0, text.FontSize)
	})

	t.Run("Viewport Units", func(t *testing.T) {
		cs, _ := Compute("div", declsOf("width: 50vw; height: 10vh"), nil, testViewport)
		assert.Equal(t, Px(400), cs.Width)
		assert.Equal(t, Px(60), cs.Height)
	})
}

func TestFromDeclarationListImportant(t *testing.T) {
	d := declsOf("left: 1px !important; left: 2px; top: 1px; top: 2px")
	assert.Equal(t, parser.Value("1px"), d["left"])
	assert.Equal(t, parser.Value("2px"), d["top"])
}
