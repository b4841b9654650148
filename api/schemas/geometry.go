package schemas

// -- Layout Geometry Schemas --

// Geometry is the resolved border box of a box in document coordinates.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right border edge.
func (g Geometry) Right() float64 { return g.X + g.Width }

// Bottom returns the y coordinate of the bottom border edge.
func (g Geometry) Bottom() float64 { return g.Y + g.Height }

// ElementGeometry pairs a box's geometry with the identity a caller used to
// select it. The layout command emits one per matched element.
type ElementGeometry struct {
	ID       string   `json:"id"`
	Tag      string   `json:"tag"`
	Element  string   `json:"element,omitempty"` // value of the id attribute, if any
	Position string   `json:"position"`
	Geometry Geometry `json:"geometry"`
	Error    string   `json:"error,omitempty"`
}

// LayoutReport is the document-level result of a layout run.
type LayoutReport struct {
	ViewportWidth  float64           `json:"viewport_width"`
	ViewportHeight float64           `json:"viewport_height"`
	Elements       []ElementGeometry `json:"elements"`
	Diagnostics    []string          `json:"diagnostics,omitempty"`
}

// FrameSnapshot is the geometry observed after the layout flush of one frame
// tick. The run command emits one per tick as a JSON line.
type FrameSnapshot struct {
	Frame    int               `json:"frame"`
	TimeMs   float64           `json:"time_ms"`
	Elements []ElementGeometry `json:"elements"`
}
