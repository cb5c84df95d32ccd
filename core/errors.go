package core

import (
	"errors"
	"fmt"
)

// ErrContextNotFound is the sentinel for context-lifecycle lookup failures.
// Use errors.Is(err, core.ErrContextNotFound) to distinguish "you used this
// API wrong" (absent or evicted context) from downstream execution errors,
// which the engine propagates unchanged.
var ErrContextNotFound = errors.New("reasoning context not found")

// ContextNotFoundError reports that the given context id is absent from the
// cache, never created or already evicted under capacity pressure. It
// matches ErrContextNotFound under errors.Is.
type ContextNotFoundError struct {
	ContextID string
}

// Error implements the error interface.
func (e *ContextNotFoundError) Error() string {
	return fmt.Sprintf("reasoning context not found: %s", e.ContextID)
}

// Is reports a match against the ErrContextNotFound sentinel.
func (e *ContextNotFoundError) Is(target error) bool {
	return target == ErrContextNotFound
}
