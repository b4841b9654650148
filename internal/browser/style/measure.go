package style

import "unicode/utf8"

// Measurer reports the advance width and line height of a text run.
type Measurer interface {
	MeasureText(text string, fontSize float64) (width, height float64)
}

// DefaultAdvanceRatio approximates the average glyph advance of a monospace
// face as a fraction of the font size.
const DefaultAdvanceRatio = 0.6

// MonospaceMeasurer gives every character the same advance. It is
// deterministic, which keeps geometry reproducible across hosts.
type MonospaceMeasurer struct {
	AdvanceRatio float64
}

// NewMonospaceMeasurer returns a measurer using DefaultAdvanceRatio.
func NewMonospaceMeasurer() MonospaceMeasurer {
	return MonospaceMeasurer{AdvanceRatio: DefaultAdvanceRatio}
}

func (m MonospaceMeasurer) MeasureText(text string, fontSize float64) (float64, float64) {
	ratio := m.AdvanceRatio
	if ratio <= 0 {
		ratio = DefaultAdvanceRatio
	}
	return float64(utf8.RuneCountInString(text)) * fontSize * ratio, fontSize
}
