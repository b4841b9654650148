// internal/browser/layout/geometry.go
package layout

import "github.com/xkilldash9x/abspos/api/schemas"

// -- Core Structures: Box Model and Dimensions --

// Dimensions defines the geometry of a layout box.
type Dimensions struct {
	// Content area (x, y) in document coordinates.
	Content Rect

	Padding Edges
	Border  Edges
	Margin  Edges
}

// MarginBox returns the rectangle enclosing the margin area.
func (d Dimensions) MarginBox() Rect {
	return d.BorderBox().ExpandedBy(d.Margin)
}

// BorderBox returns the rectangle enclosing the border area.
func (d Dimensions) BorderBox() Rect {
	return d.PaddingBox().ExpandedBy(d.Border)
}

// PaddingBox returns the rectangle enclosing the padding area.
func (d Dimensions) PaddingBox() Rect {
	return d.Content.ExpandedBy(d.Padding)
}

// horizontalEdges is the sum of horizontal border and padding.
func (d Dimensions) horizontalEdges() float64 {
	return d.Border.Left + d.Border.Right + d.Padding.Left + d.Padding.Right
}

// verticalEdges is the sum of vertical border and padding.
func (d Dimensions) verticalEdges() float64 {
	return d.Border.Top + d.Border.Bottom + d.Padding.Top + d.Padding.Bottom
}

type Rect struct {
	X, Y, Width, Height float64
}

// ExpandedBy returns a new rectangle expanded by the edge sizes.
func (r Rect) ExpandedBy(e Edges) Rect {
	return Rect{
		X:      r.X - e.Left,
		Y:      r.Y - e.Top,
		Width:  r.Width + e.Left + e.Right,
		Height: r.Height + e.Top + e.Bottom,
	}
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.X+r.Width, o.X+o.Width), max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Geometry converts the rectangle to its API representation.
func (r Rect) Geometry() schemas.Geometry {
	return schemas.Geometry{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

type Edges struct {
	Top, Right, Bottom, Left float64
}

// Point is a position in document coordinates.
type Point struct {
	X, Y float64
}
