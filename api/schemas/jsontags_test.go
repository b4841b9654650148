package schemas_test

import (
	"reflect"
	"testing"

	// Third party libraries for expressive and robust assertions.
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/abspos/api/schemas"
)

// TestStructJSONTags uses reflection to verify that the `json` tags on struct fields
// are correct. The layout command's output is consumed by scripts.
func TestStructJSONTags(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name         string
		structRef    interface{}
		expectedTags map[string]string
	}{
		{
			name:      "Geometry",
			structRef: schemas.Geometry{},
			expectedTags: map[string]string{
				"X":      "x",
				"Y":      "y",
				"Width":  "width",
				"Height": "height",
			},
		},
		{
			name:      "ElementGeometry",
			structRef: schemas.ElementGeometry{},
			expectedTags: map[string]string{
				"ID":       "id",
				"Tag":      "tag",
				"Element":  "element,omitempty",
				"Position": "position",
				"Geometry": "geometry",
				"Error":    "error,omitempty",
			},
		},
		{
			name:      "LayoutReport",
			structRef: schemas.LayoutReport{},
			expectedTags: map[string]string{
				"ViewportWidth":  "viewport_width",
				"ViewportHeight": "viewport_height",
				"Elements":       "elements",
				"Diagnostics":    "diagnostics,omitempty",
			},
		},
		{
			name:      "FrameSnapshot",
			structRef: schemas.FrameSnapshot{},
			expectedTags: map[string]string{
				"Frame":    "frame",
				"TimeMs":   "time_ms",
				"Elements": "elements",
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			typ := reflect.TypeOf(tc.structRef)
			assert.Equal(t, len(tc.expectedTags), typ.NumField(), "unexpected field count")
			for fieldName, expectedTag := range tc.expectedTags {
				field, found := typ.FieldByName(fieldName)
				if assert.True(t, found, "field %s not found", fieldName) {
					assert.Equal(t, expectedTag, field.Tag.Get("json"), "tag mismatch on %s", fieldName)
				}
			}
		})
	}
}

func TestGeometryEdges(t *testing.T) {
	g := schemas.Geometry{X: 10, Y: 20, Width: 100, Height: 50}
	assert.Equal(t, 110.0, g.Right())
	assert.Equal(t, 70.0, g.Bottom())
}
