// internal/browser/dom/document.go
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/abspos/internal/browser/layout"
	"github.com/xkilldash9x/abspos/internal/browser/parser"
	"github.com/xkilldash9x/abspos/internal/browser/style"
)

// Elements that never generate boxes.
var nonRendered = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"title":    true,
	"meta":     true,
	"link":     true,
	"template": true,
	"noscript": true,
}

// Document is a box tree built from HTML, together with the parsed node tree
// it came from. Boxes created later by scripts have no backing node.
type Document struct {
	root   *html.Node
	html   *layout.Box
	body   *layout.Box
	boxes  map[*html.Node]*layout.Box
	logger *zap.Logger
}

// Parse reads an HTML document and builds its box tree. Inline style
// attributes become the boxes' declarations; every attribute is copied.
func Parse(r io.Reader, logger *zap.Logger) (*Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	d := &Document{
		root:   root,
		boxes:  make(map[*html.Node]*layout.Box),
		logger: logger.Named("dom"),
	}
	htmlNode := htmlquery.FindOne(root, "/html")
	if htmlNode == nil {
		return nil, fmt.Errorf("document has no html element")
	}
	d.html = d.build(htmlNode)
	d.body = d.html.Find(func(b *layout.Box) bool { return b.Tag() == "body" })
	if d.body == nil {
		// html.Parse always synthesizes a body; this only guards odd inputs.
		d.body = layout.NewElement("body", nil)
		d.html.Append(d.body)
	}
	d.logger.Debug("Built box tree.", zap.Int("boxes", len(d.boxes)))
	return d, nil
}

// ParseString is Parse for an in-memory document.
func ParseString(s string, logger *zap.Logger) (*Document, error) {
	return Parse(strings.NewReader(s), logger)
}

func (d *Document) build(n *html.Node) *layout.Box {
	b := layout.NewElement(n.Data, declarationsOf(n))
	for _, a := range n.Attr {
		b.SetAttr(a.Key, a.Val)
	}
	d.boxes[n] = b

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if nonRendered[c.Data] {
				continue
			}
			b.Append(d.build(c))
		case html.TextNode:
			t := layout.NewText(c.Data)
			d.boxes[c] = t
			b.Append(t)
		}
	}
	return b
}

func declarationsOf(n *html.Node) style.Declarations {
	css := htmlquery.SelectAttr(n, "style")
	if css == "" {
		return nil
	}
	return style.FromDeclarationList(parser.ParseDeclarations(css))
}

// Root returns the box of the html element.
func (d *Document) Root() *layout.Box { return d.html }

// Body returns the box of the body element.
func (d *Document) Body() *layout.Box { return d.body }

// Query selects element boxes of the parsed document by XPath. Matches that
// produce no box (for example inside head) are skipped.
func (d *Document) Query(expr string) ([]*layout.Box, error) {
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	var out []*layout.Box
	for _, n := range nodes {
		if b, ok := d.boxes[n]; ok && n.Type == html.ElementNode {
			out = append(out, b)
		}
	}
	return out, nil
}

// Elements returns all element boxes under the root in document order.
func (d *Document) Elements() []*layout.Box {
	var out []*layout.Box
	d.html.Walk(func(b *layout.Box) {
		if !b.IsText() {
			out = append(out, b)
		}
	})
	return out
}
