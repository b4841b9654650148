package style

import (
	"strings"

	"github.com/xkilldash9x/abspos/internal/browser/parser"
)

// expandShorthands rewrites shorthand properties into their longhands in place.
// A longhand declared alongside its shorthand keeps its own value; the shorthand
// only fills sides that were not set explicitly.
func expandShorthands(styles Declarations) {
	expand1To4Shorthand(styles, "margin", "margin-top", "margin-right", "margin-bottom", "margin-left")
	expand1To4Shorthand(styles, "padding", "padding-top", "padding-right", "padding-bottom", "padding-left")
	expand1To4Shorthand(styles, "border-width", "border-top-width", "border-right-width", "border-bottom-width", "border-left-width")
	expand1To4Shorthand(styles, "border-style", "border-top-style", "border-right-style", "border-bottom-style", "border-left-style")
	expand1To4Shorthand(styles, "inset", "top", "right", "bottom", "left")

	if borderVal, ok := styles["border"]; ok {
		width, styleVal := "medium", "none"
		foundWidth, foundStyle := false, false
		for _, part := range strings.Fields(string(borderVal)) {
			switch {
			case !foundWidth && isBorderWidthToken(part):
				width, foundWidth = part, true
			case !foundStyle && isBorderStyleToken(part):
				styleVal, foundStyle = part, true
			}
		}
		for _, side := range []string{"top", "right", "bottom", "left"} {
			setIfAbsent(styles, parser.Property("border-"+side+"-width"), parser.Value(width))
			setIfAbsent(styles, parser.Property("border-"+side+"-style"), parser.Value(styleVal))
		}
		delete(styles, "border")
	}
}

func expand1To4Shorthand(styles Declarations, shorthand, top, right, bottom, left parser.Property) {
	val, ok := styles[shorthand]
	if !ok {
		return
	}
	delete(styles, shorthand)

	parts := strings.Fields(string(val))
	var t, r, b, l string
	switch len(parts) {
	case 1:
		t, r, b, l = parts[0], parts[0], parts[0], parts[0]
	case 2:
		t, r, b, l = parts[0], parts[1], parts[0], parts[1]
	case 3:
		t, r, b, l = parts[0], parts[1], parts[2], parts[1]
	case 4:
		t, r, b, l = parts[0], parts[1], parts[2], parts[3]
	default:
		// Leave the longhands untouched; Compute falls back to their defaults.
		return
	}
	setIfAbsent(styles, top, parser.Value(t))
	setIfAbsent(styles, right, parser.Value(r))
	setIfAbsent(styles, bottom, parser.Value(b))
	setIfAbsent(styles, left, parser.Value(l))
}

func setIfAbsent(styles Declarations, prop parser.Property, val parser.Value) {
	if _, exists := styles[prop]; !exists {
		styles[prop] = val
	}
}

func isBorderWidthToken(s string) bool {
	switch s {
	case "thin", "medium", "thick":
		return true
	}
	l, err := ParseLength(s)
	return err == nil && !l.IsAuto() && !l.IsPercent()
}

func isBorderStyleToken(s string) bool {
	switch s {
	case "none", "hidden", "solid", "dashed", "dotted", "double", "groove", "ridge", "inset", "outset":
		return true
	}
	return false
}

var shorthandLonghands = map[parser.Property][]parser.Property{
	"margin":       {"margin-top", "margin-right", "margin-bottom", "margin-left"},
	"padding":      {"padding-top", "padding-right", "padding-bottom", "padding-left"},
	"border-width": {"border-top-width", "border-right-width", "border-bottom-width", "border-left-width"},
	"border-style": {"border-top-style", "border-right-style", "border-bottom-style", "border-left-style"},
	"inset":        {"top", "right", "bottom", "left"},
	"border": {
		"border-top-width", "border-right-width", "border-bottom-width", "border-left-width",
		"border-top-style", "border-right-style", "border-bottom-style", "border-left-style",
	},
}

// Set records a declaration the way a CSSOM assignment does: a shorthand
// replaces any previously declared longhands it covers. An empty value removes
// the property.
func (d Declarations) Set(prop parser.Property, val parser.Value) {
	if strings.TrimSpace(string(val)) == "" {
		d.Remove(prop)
		return
	}
	for _, longhand := range shorthandLonghands[prop] {
		delete(d, longhand)
	}
	d[prop] = val
}

// Remove deletes a property together with the longhands of a shorthand.
func (d Declarations) Remove(prop parser.Property) {
	for _, longhand := range shorthandLonghands[prop] {
		delete(d, longhand)
	}
	delete(d, prop)
}

// Get returns the declared value, reconstructing nothing for shorthands.
func (d Declarations) Get(prop parser.Property) (parser.Value, bool) {
	v, ok := d[prop]
	return v, ok
}

// Longhands returns the properties a shorthand expands to, or nil.
func Longhands(prop parser.Property) []parser.Property {
	return shorthandLonghands[prop]
}
