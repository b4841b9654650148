// internal/browser/parser/css_test.go
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Helper to build expected declarations concisely.
func d(prop, val string, important bool) Declaration {
	return Declaration{Property: Property(prop), Value: Value(val), Important: important}
}

func TestParseDeclarations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Declaration
	}{
		{"Single", "left: 10px", []Declaration{d("left", "10px", false)}},
		{"Trailing Semicolon", "top: 0; ", []Declaration{d("top", "0", false)}},
		{"Multiple", "position:absolute;width:100px;height: 50%",
			[]Declaration{d("position", "absolute", false), d("width", "100px", false), d("height", "50%", false)}},
		{"Braced Block", "{ margin: 0 auto; }", []Declaration{d("margin", "0 auto", false)}},
		{"Important", "bottom: 5px !important", []Declaration{d("bottom", "5px", true)}},
		{"Uppercase Property", "LEFT: 1px", []Declaration{d("left", "1px", false)}},
		{"Comment Skipped", "/* note */ right: 2px", []Declaration{d("right", "2px", false)}},
		{"Function Value", "width: calc(100% - 10px); top: 1px",
			[]Declaration{d("width", "calc(100% - 10px)", false), d("top", "1px", false)}},
		{"Quoted Semicolon", `font-family: "a;b"; top: 3px`,
			[]Declaration{d("font-family", `"a;b"`, false), d("top", "3px", false)}},
		// Invalid pieces are dropped without affecting their neighbours.
		{"Missing Colon", "left 10px; top: 4px", []Declaration{d("top", "4px", false)}},
		{"Empty Value", "left: ; top: 4px", []Declaration{d("top", "4px", false)}},
		{"Garbage Start", "!!; width: 1px", []Declaration{d("width", "1px", false)}},
		{"Empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseDeclarations(tt.input))
		})
	}
}

func TestPropertyFromCamel(t *testing.T) {
	tests := []struct {
		input    string
		expected Property
	}{
		{"left", "left"},
		{"marginLeft", "margin-left"},
		{"backgroundColor", "background-color"},
		{"borderTopWidth", "border-top-width"},
		{"cssFloat", "float"},
		{"margin-left", "margin-left"},
		{"Margin-Top", "margin-top"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, PropertyFromCamel(tt.input))
		})
	}
}

func TestPropertyCamel(t *testing.T) {
	assert.Equal(t, "marginLeft", Property("margin-left").Camel())
	assert.Equal(t, "top", Property("top").Camel())
	assert.Equal(t, "borderTopWidth", Property("border-top-width").Camel())
	assert.Equal(t, "cssFloat", Property("float").Camel())
}
