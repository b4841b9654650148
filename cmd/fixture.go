package cmd

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/abspos/api/schemas"
	"github.com/xkilldash9x/abspos/internal/browser/dom"
	"github.com/xkilldash9x/abspos/internal/browser/layout"
	"github.com/xkilldash9x/abspos/internal/browser/style"
	"github.com/xkilldash9x/abspos/internal/config"
)

// openFixture opens path for reading, or returns stdin for "-".
func openFixture(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	return f, nil
}

func loadDocument(path string, stdin io.Reader, logger *zap.Logger) (*dom.Document, error) {
	r, err := openFixture(path, stdin)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc, err := dom.Parse(r, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return doc, nil
}

// newEngine builds a layout engine over the document using the layout section
// of cfg.
func newEngine(doc *dom.Document, cfg config.Interface, logger *zap.Logger) *layout.Engine {
	lc := cfg.Layout()
	dir := style.DirectionLTR
	if lc.Direction == "rtl" {
		dir = style.DirectionRTL
	}
	return layout.NewEngine(doc.Root(), logger,
		layout.WithViewport(lc.ViewportWidth, lc.ViewportHeight),
		layout.WithDirection(dir),
		layout.WithMaxRevisits(lc.MaxRevisits),
	)
}

// selectBoxes returns the elements matched by any of the XPath expressions in
// document order, or every element of the document when none is given.
func selectBoxes(doc *dom.Document, xpaths []string) ([]*layout.Box, error) {
	if len(xpaths) == 0 {
		return doc.Elements(), nil
	}
	seen := make(map[*layout.Box]bool)
	for _, expr := range xpaths {
		boxes, err := doc.Query(expr)
		if err != nil {
			return nil, err
		}
		if len(boxes) == 0 {
			return nil, fmt.Errorf("xpath %q matched no rendered element", expr)
		}
		for _, b := range boxes {
			seen[b] = true
		}
	}
	var out []*layout.Box
	for _, b := range doc.Elements() {
		if seen[b] {
			out = append(out, b)
		}
	}
	return out, nil
}

// elementGeometry queries one box. A layout error is reported on the element
// rather than failing the whole report.
func elementGeometry(engine *layout.Engine, b *layout.Box) schemas.ElementGeometry {
	eg := schemas.ElementGeometry{
		ID:  dom.GenerateUniqueXPath(b),
		Tag: b.Tag(),
	}
	if id, ok := b.Attr("id"); ok {
		eg.Element = id
	}
	geom, err := engine.GetComputedGeometry(b)
	// Style is computed by the flush the query triggers.
	eg.Position = b.Style().Position.String()
	if err != nil {
		eg.Error = err.Error()
		return eg
	}
	eg.Geometry = geom
	return eg
}

func diagnosticsOf(boxes []*layout.Box) []string {
	var out []string
	for _, b := range boxes {
		for _, d := range b.Diagnostics() {
			out = append(out, dom.GenerateUniqueXPath(b)+": "+d.String())
		}
	}
	return out
}
