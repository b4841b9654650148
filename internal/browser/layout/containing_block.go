// internal/browser/layout/containing_block.go
package layout

import "github.com/xkilldash9x/abspos/internal/browser/style"

// ContainingBlock is the rectangle the offsets of an out-of-flow box resolve
// against, together with the writing direction of the box establishing it.
type ContainingBlock struct {
	Rect
	Direction style.DirectionType
	// Box establishes the block; nil means the initial containing block.
	Box *Box
}

// Initial reports whether this is the viewport-derived initial containing block.
func (cb ContainingBlock) Initial() bool { return cb.Box == nil }

func (e *Engine) initialContainingBlock() (ContainingBlock, error) {
	if e.viewport.Width <= 0 || e.viewport.Height <= 0 {
		return ContainingBlock{}, NewInvalidContainingBlockError(e.root, "initial containing block unavailable: empty viewport")
	}
	return ContainingBlock{
		Rect:      Rect{Width: e.viewport.Width, Height: e.viewport.Height},
		Direction: e.direction,
	}, nil
}

// resolveContainingBlock walks the ancestors of b and returns the padding box
// of the first one whose position is relative, absolute or fixed. Fixed boxes
// and the root always use the initial containing block. Ancestors must have
// been laid out earlier in the same top-down pass.
func (e *Engine) resolveContainingBlock(b *Box) (ContainingBlock, error) {
	if !e.connected(b) {
		return ContainingBlock{}, NewInvalidContainingBlockError(b, "box is not connected to the document")
	}
	icb, err := e.initialContainingBlock()
	if err != nil {
		return ContainingBlock{}, err
	}
	if b.parent == nil || b.style.Position == style.PositionFixed {
		return icb, nil
	}
	for p := b.parent; p != nil; p = p.parent {
		if p.kind == ElementBox && p.style.Position.EstablishesContainingBlock() {
			return ContainingBlock{
				Rect:      p.dims.PaddingBox(),
				Direction: p.style.Direction,
				Box:       p,
			}, nil
		}
	}
	return icb, nil
}

// connected reports whether b belongs to the engine's document.
func (e *Engine) connected(b *Box) bool {
	if b == nil || e.root == nil {
		return false
	}
	r := b
	for r.parent != nil {
		r = r.parent
	}
	return r == e.root
}
