// internal/browser/layout/errors.go
package layout

import (
	"errors"
	"fmt"
)

// Typed errors let callers (the script bindings, the CLI) classify a failed
// flush with errors.As. Both flush errors are scoped to the flush that raised
// them: the engine stays usable and the affected boxes are retried next time.

// InvalidContainingBlockError is returned when a box has no usable containing
// block: it is not connected to the engine's document, or the initial
// containing block is unavailable because the viewport is empty.
type InvalidContainingBlockError struct {
	BoxID  string
	Reason string
}

// Error implements the error interface by formatting the message on the fly.
func (e *InvalidContainingBlockError) Error() string {
	return fmt.Sprintf("invalid containing block for box %s: %s", e.BoxID, e.Reason)
}

// NewInvalidContainingBlockError creates a new InvalidContainingBlockError.
func NewInvalidContainingBlockError(b *Box, reason string) *InvalidContainingBlockError {
	id := "<nil>"
	if b != nil {
		id = b.Label()
	}
	return &InvalidContainingBlockError{BoxID: id, Reason: reason}
}

// CyclicLayoutDependencyError is returned when a box is laid out more often
// in a single flush than the revisit budget allows.
type CyclicLayoutDependencyError struct {
	BoxID  string
	Visits int
}

// Error implements the error interface.
func (e *CyclicLayoutDependencyError) Error() string {
	return fmt.Sprintf("cyclic layout dependency: box %s laid out %d times in one flush", e.BoxID, e.Visits)
}

// HierarchyError reports a structural mutation that would corrupt the tree.
type HierarchyError struct {
	Op     string
	Reason string
}

// Error implements the error interface.
func (e *HierarchyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ErrFlushInProgress is returned by queries issued from inside a flush.
var ErrFlushInProgress = errors.New("layout flush in progress")
