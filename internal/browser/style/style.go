// internal/browser/style/style.go
package style

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/abspos/internal/browser/parser"
)

// -- Constants and Configuration --

const (
	BaseFontSize      = 16.0 // Default root font size.
	DefaultLineHeight = 1.2  // Default multiplier for 'line-height: normal'.
)

// Viewport carries the dimensions used to resolve vw/vh/vmin/vmax.
type Viewport struct {
	Width, Height float64
}

// Declarations is the specified style of a single box, keyed by hyphenated
// property name. Shorthands are expanded during Compute.
type Declarations map[parser.Property]parser.Value

// Clone returns an independent copy.
func (d Declarations) Clone() Declarations {
	out := make(Declarations, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// FromDeclarationList folds a parsed declaration list. Later entries win unless
// an earlier one is !important.
func FromDeclarationList(list []parser.Declaration) Declarations {
	out := make(Declarations, len(list))
	important := make(map[parser.Property]bool)
	for _, decl := range list {
		if important[decl.Property] && !decl.Important {
			continue
		}
		out[decl.Property] = decl.Value
		if decl.Important {
			important[decl.Property] = true
		}
	}
	return out
}

// -- Enumerated properties --

type DisplayType int

const (
	DisplayInline DisplayType = iota
	DisplayBlock
	DisplayInlineBlock
	DisplayNone
)

func (d DisplayType) String() string {
	switch d {
	case DisplayBlock:
		return "block"
	case DisplayInlineBlock:
		return "inline-block"
	case DisplayNone:
		return "none"
	default:
		return "inline"
	}
}

type PositionType int

const (
	PositionStatic PositionType = iota
	PositionRelative
	PositionAbsolute
	PositionFixed
)

func (p PositionType) String() string {
	switch p {
	case PositionRelative:
		return "relative"
	case PositionAbsolute:
		return "absolute"
	case PositionFixed:
		return "fixed"
	default:
		return "static"
	}
}

// OutOfFlow reports whether boxes with this position are removed from normal flow.
func (p PositionType) OutOfFlow() bool {
	return p == PositionAbsolute || p == PositionFixed
}

// EstablishesContainingBlock reports whether descendants with position
// absolute resolve their offsets against a box with this position.
func (p PositionType) EstablishesContainingBlock() bool {
	return p != PositionStatic
}

type DirectionType int

const (
	DirectionLTR DirectionType = iota
	DirectionRTL
)

type BoxSizingType int

const (
	ContentBox BoxSizingType = iota
	BorderBox
)

// -- Computed style --

// ComputedStyle is the immutable per-box style snapshot consumed by layout.
// Lengths are absolute pixels, percentages or auto; font and viewport relative
// units are resolved during Compute.
type ComputedStyle struct {
	Display   DisplayType
	Position  PositionType
	Direction DirectionType
	BoxSizing BoxSizingType

	Top, Right, Bottom, Left Length
	Width, Height            Length

	MarginTop, MarginRight, MarginBottom, MarginLeft     Length
	PaddingTop, PaddingRight, PaddingBottom, PaddingLeft Length

	// Border widths in pixels; zero when the border style is none or hidden.
	BorderTop, BorderRight, BorderBottom, BorderLeft float64

	FontSize   float64
	LineHeight float64
}

// Diagnostic reports a declaration that could not be used and the value that
// replaced it.
type Diagnostic struct {
	Property parser.Property
	Value    parser.Value
	Fallback parser.Value
	Reason   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %q ignored (%s), using %q", d.Property, d.Value, d.Reason, d.Fallback)
}

// initialValues is the default table consulted for missing or malformed
// declarations. display is absent because it depends on the element.
var initialValues = map[parser.Property]parser.Value{
	"position":            "static",
	"direction":           "ltr",
	"box-sizing":          "content-box",
	"top":                 "auto",
	"right":               "auto",
	"bottom":              "auto",
	"left":                "auto",
	"width":               "auto",
	"height":              "auto",
	"margin-top":          "0",
	"margin-right":        "0",
	"margin-bottom":       "0",
	"margin-left":         "0",
	"padding-top":         "0",
	"padding-right":       "0",
	"padding-bottom":      "0",
	"padding-left":        "0",
	"border-top-width":    "medium",
	"border-right-width":  "medium",
	"border-bottom-width": "medium",
	"border-left-width":   "medium",
	"border-top-style":    "none",
	"border-right-style":  "none",
	"border-bottom-style": "none",
	"border-left-style":   "none",
	"line-height":         "normal",
}

// InitialValue returns the default used for a property, and whether one exists.
func InitialValue(prop parser.Property) (parser.Value, bool) {
	v, ok := initialValues[prop]
	return v, ok
}

// Compute turns specified declarations into a ComputedStyle. parent may be nil
// for the root; inherited properties (font-size, line-height, direction) then
// use their initial values. Malformed declarations never fail the computation:
// they are replaced by the initial value and reported as diagnostics.
func Compute(tag string, decls Declarations, parent *ComputedStyle, vp Viewport) (ComputedStyle, []Diagnostic) {
	c := &computer{decls: decls.Clone(), vp: vp}
	expandShorthands(c.decls)

	var cs ComputedStyle
	parentFontSize := BaseFontSize
	if parent != nil {
		parentFontSize = parent.FontSize
	}

	cs.FontSize = c.fontSize(parentFontSize)
	cs.LineHeight = c.lineHeight(cs.FontSize, parent)
	cs.Display = c.display(tag)
	cs.Position = c.position()
	cs.Direction = c.direction(parent)
	cs.BoxSizing = c.boxSizing()

	cs.Top = c.length("top", cs.FontSize, true)
	cs.Right = c.length("right", cs.FontSize, true)
	cs.Bottom = c.length("bottom", cs.FontSize, true)
	cs.Left = c.length("left", cs.FontSize, true)
	cs.Width = c.size("width", cs.FontSize)
	cs.Height = c.size("height", cs.FontSize)

	cs.MarginTop = c.length("margin-top", cs.FontSize, true)
	cs.MarginRight = c.length("margin-right", cs.FontSize, true)
	cs.MarginBottom = c.length("margin-bottom", cs.FontSize, true)
	cs.MarginLeft = c.length("margin-left", cs.FontSize, true)

	cs.PaddingTop = c.padding("padding-top", cs.FontSize)
	cs.PaddingRight = c.padding("padding-right", cs.FontSize)
	cs.PaddingBottom = c.padding("padding-bottom", cs.FontSize)
	cs.PaddingLeft = c.padding("padding-left", cs.FontSize)

	cs.BorderTop = c.border("top", cs.FontSize)
	cs.BorderRight = c.border("right", cs.FontSize)
	cs.BorderBottom = c.border("bottom", cs.FontSize)
	cs.BorderLeft = c.border("left", cs.FontSize)

	return cs, c.diags
}

// TextStyle derives the style of an anonymous text run from its parent element.
func TextStyle(parent *ComputedStyle) ComputedStyle {
	cs, _ := Compute("#text", nil, parent, Viewport{})
	return cs
}

type computer struct {
	decls Declarations
	vp    Viewport
	diags []Diagnostic
}

func (c *computer) lookup(prop parser.Property) (parser.Value, bool) {
	v, ok := c.decls[prop]
	if !ok {
		return initialValues[prop], false
	}
	return parser.Value(strings.ToLower(strings.TrimSpace(string(v)))), true
}

func (c *computer) reject(prop parser.Property, reason string) parser.Value {
	fallback := initialValues[prop]
	c.diags = append(c.diags, Diagnostic{Property: prop, Value: c.decls[prop], Fallback: fallback, Reason: reason})
	return fallback
}

func (c *computer) keyword(prop parser.Property, allowed ...string) string {
	v, specified := c.lookup(prop)
	if !specified {
		return string(v)
	}
	for _, a := range allowed {
		if string(v) == a {
			return a
		}
	}
	return string(c.reject(prop, "unsupported keyword"))
}

func (c *computer) display(tag string) DisplayType {
	v, specified := c.lookup("display")
	if !specified {
		return defaultDisplay(tag)
	}
	switch v {
	case "block", "flex", "grid", "list-item", "table", "flow-root":
		return DisplayBlock
	case "inline-block", "inline-flex", "inline-grid", "inline-table":
		return DisplayInlineBlock
	case "inline":
		return DisplayInline
	case "none":
		return DisplayNone
	}
	c.diags = append(c.diags, Diagnostic{Property: "display", Value: c.decls["display"], Fallback: parser.Value(defaultDisplay(tag).String()), Reason: "unsupported keyword"})
	return defaultDisplay(tag)
}

func (c *computer) position() PositionType {
	switch c.keyword("position", "static", "relative", "absolute", "fixed", "sticky") {
	case "relative", "sticky":
		// sticky is treated as relative; sticky scrolling behaviour is not modelled.
		return PositionRelative
	case "absolute":
		return PositionAbsolute
	case "fixed":
		return PositionFixed
	default:
		return PositionStatic
	}
}

func (c *computer) direction(parent *ComputedStyle) DirectionType {
	if _, specified := c.decls["direction"]; !specified && parent != nil {
		return parent.Direction
	}
	if c.keyword("direction", "ltr", "rtl") == "rtl" {
		return DirectionRTL
	}
	return DirectionLTR
}

func (c *computer) boxSizing() BoxSizingType {
	if c.keyword("box-sizing", "content-box", "border-box") == "border-box" {
		return BorderBox
	}
	return ContentBox
}

// length parses a length-percentage property. Sizes and paddings reject
// negative values; offsets and margins accept them.
func (c *computer) length(prop parser.Property, fontSize float64, allowNegative bool) Length {
	v, specified := c.lookup(prop)
	l, err := ParseLength(string(v))
	if err != nil {
		if !specified {
			return Auto
		}
		l, _ = ParseLength(string(c.reject(prop, err.Error())))
	}
	if !allowNegative && l.Amount < 0 {
		l, _ = ParseLength(string(c.reject(prop, "negative value")))
	}
	return l.absolutize(fontSize, c.vp)
}

func (c *computer) size(prop parser.Property, fontSize float64) Length {
	return c.length(prop, fontSize, false)
}

func (c *computer) padding(prop parser.Property, fontSize float64) Length {
	l := c.length(prop, fontSize, false)
	if l.IsAuto() {
		return Px(0)
	}
	return l
}

func (c *computer) border(side string, fontSize float64) float64 {
	styleProp := parser.Property("border-" + side + "-style")
	widthProp := parser.Property("border-" + side + "-width")

	switch c.keyword(styleProp, "none", "hidden", "solid", "dashed", "dotted", "double", "groove", "ridge", "inset", "outset") {
	case "none", "hidden":
		return 0
	}

	v, _ := c.lookup(widthProp)
	switch v {
	case "thin":
		return 1
	case "medium":
		return 3
	case "thick":
		return 5
	}
	l, err := ParseLength(string(v))
	if err != nil || l.IsAuto() || l.IsPercent() || l.Amount < 0 {
		c.reject(widthProp, "invalid border width")
		return 3
	}
	return l.absolutize(fontSize, c.vp).Amount
}

func (c *computer) fontSize(parentFontSize float64) float64 {
	v, specified := c.decls["font-size"]
	if !specified {
		return parentFontSize
	}
	switch strings.TrimSpace(string(v)) {
	case "inherit", "":
		return parentFontSize
	case "medium":
		return BaseFontSize
	case "small":
		return 13
	case "large":
		return 18
	}
	l, err := ParseLength(string(v))
	if err != nil || l.IsAuto() || l.Amount < 0 {
		c.diags = append(c.diags, Diagnostic{Property: "font-size", Value: v, Fallback: "inherit", Reason: "invalid font size"})
		return parentFontSize
	}
	if l.IsPercent() {
		return parentFontSize * l.Amount / 100.0
	}
	return l.absolutize(parentFontSize, c.vp).Amount
}

func (c *computer) lineHeight(fontSize float64, parent *ComputedStyle) float64 {
	v, specified := c.lookup("line-height")
	if !specified && parent != nil && parent.FontSize == fontSize {
		return parent.LineHeight
	}
	if v == "normal" {
		return fontSize * DefaultLineHeight
	}
	if factor, err := strconv.ParseFloat(string(v), 64); err == nil && factor >= 0 {
		return factor * fontSize
	}
	l, err := ParseLength(string(v))
	if err != nil || l.IsAuto() || l.Amount < 0 {
		c.reject("line-height", "invalid line height")
		return fontSize * DefaultLineHeight
	}
	if l.IsPercent() {
		return fontSize * l.Amount / 100.0
	}
	return l.absolutize(fontSize, c.vp).Amount
}

func defaultDisplay(tag string) DisplayType {
	switch strings.ToLower(tag) {
	case "html", "body", "div", "p", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "form", "header", "footer", "section", "article", "nav", "main":
		return DisplayBlock
	case "input", "button", "textarea", "select", "img":
		return DisplayInlineBlock
	case "head", "script", "style", "title", "meta", "link":
		return DisplayNone
	default:
		return DisplayInline
	}
}
