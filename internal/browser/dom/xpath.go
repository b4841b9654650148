// internal/browser/dom/xpath.go
package dom

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/abspos/internal/browser/layout"
)

// GenerateUniqueXPath generates an XPath expression for an element box. An
// ancestor-or-self with an id anchors the path. Text boxes yield the path of
// their parent element.
func GenerateUniqueXPath(b *layout.Box) string {
	if b == nil {
		return ""
	}
	if b.IsText() {
		b = b.Parent()
	}

	var path []string
	for n := b; n != nil; n = n.Parent() {
		tag := strings.ToLower(n.Tag())
		if id, ok := n.Attr("id"); ok && id != "" {
			path = append(path, fmt.Sprintf(`//*[@id='%s']`, id))
			break
		}

		// XPath indices are 1-based and count same-tag siblings.
		index := 1
		if parent := n.Parent(); parent != nil {
			for _, sib := range parent.Children() {
				if sib == n {
					break
				}
				if !sib.IsText() && strings.ToLower(sib.Tag()) == tag {
					index++
				}
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(path) == 0 {
		return "/"
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	xpath := strings.Join(path, "/")
	if !strings.HasPrefix(xpath, "//*[@id=") {
		xpath = "/" + xpath
	}
	return xpath
}
