// internal/browser/style/length.go
package style

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit identifies how a Length is interpreted.
type Unit int

const (
	UnitAuto Unit = iota
	UnitPx
	UnitPercent
	UnitEm
	UnitRem
	UnitVw
	UnitVh
	UnitVmin
	UnitVmax
)

var unitSuffixes = []struct {
	suffix string
	unit   Unit
}{
	// Longer suffixes first so "rem" is not read as "em" and "vmin" not as "in".
	{"vmin", UnitVmin},
	{"vmax", UnitVmax},
	{"rem", UnitRem},
	{"em", UnitEm},
	{"px", UnitPx},
	{"vw", UnitVw},
	{"vh", UnitVh},
	{"%", UnitPercent},
}

// Length is a CSS <length-percentage> or the keyword auto.
type Length struct {
	Amount float64
	Unit   Unit
}

// Auto is the 'auto' keyword.
var Auto = Length{Unit: UnitAuto}

// Px builds an absolute length.
func Px(v float64) Length { return Length{Amount: v, Unit: UnitPx} }

// Percent builds a percentage length; 50 means 50%.
func Percent(v float64) Length { return Length{Amount: v, Unit: UnitPercent} }

func (l Length) IsAuto() bool    { return l.Unit == UnitAuto }
func (l Length) IsPercent() bool { return l.Unit == UnitPercent }

func (l Length) String() string {
	switch l.Unit {
	case UnitAuto:
		return "auto"
	case UnitPercent:
		return strconv.FormatFloat(l.Amount, 'f', -1, 64) + "%"
	}
	for _, s := range unitSuffixes {
		if s.unit == l.Unit {
			return strconv.FormatFloat(l.Amount, 'f', -1, 64) + s.suffix
		}
	}
	return strconv.FormatFloat(l.Amount, 'f', -1, 64)
}

// ParseLength parses a single CSS length token. The only unitless length is 0.
func ParseLength(value string) (Length, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return Auto, fmt.Errorf("empty length")
	}
	if value == "auto" {
		return Auto, nil
	}

	numStr, unit, unitless := value, UnitPx, true
	for _, s := range unitSuffixes {
		if strings.HasSuffix(value, s.suffix) {
			numStr, unit, unitless = strings.TrimSuffix(value, s.suffix), s.unit, false
			break
		}
	}

	amount, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return Auto, fmt.Errorf("invalid length %q: %w", value, err)
	}
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return Auto, fmt.Errorf("invalid length %q: not finite", value)
	}
	if unitless && amount != 0 {
		return Auto, fmt.Errorf("invalid length %q: missing unit", value)
	}
	return Length{Amount: amount, Unit: unit}, nil
}

// absolutize converts font and viewport relative units to pixels. Percentages
// and auto are returned unchanged because their reference is only known at
// layout time.
func (l Length) absolutize(fontSize float64, vp Viewport) Length {
	switch l.Unit {
	case UnitEm:
		return Px(l.Amount * fontSize)
	case UnitRem:
		return Px(l.Amount * BaseFontSize)
	case UnitVw:
		return Px(vp.Width * l.Amount / 100.0)
	case UnitVh:
		return Px(vp.Height * l.Amount / 100.0)
	case UnitVmin:
		return Px(min(vp.Width, vp.Height) * l.Amount / 100.0)
	case UnitVmax:
		return Px(max(vp.Width, vp.Height) * l.Amount / 100.0)
	}
	return l
}

// Resolve returns the pixel value of l against a reference dimension. ok is
// false for auto, and for percentages whose reference is not definite; callers
// treat both as auto.
func (l Length) Resolve(reference float64, definite bool) (px float64, ok bool) {
	switch l.Unit {
	case UnitAuto:
		return 0, false
	case UnitPercent:
		if !definite {
			return 0, false
		}
		return reference * l.Amount / 100.0, true
	default:
		return l.Amount, true
	}
}

// ResolveOr is Resolve with a fallback for the auto case.
func (l Length) ResolveOr(reference float64, definite bool, fallback float64) float64 {
	if v, ok := l.Resolve(reference, definite); ok {
		return v
	}
	return fallback
}
