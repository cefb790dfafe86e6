package reconcile

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a patch addresses a key that does not exist.
var ErrNotFound = errors.New("reconcile: target not found")

// DuplicateKeyError is returned when a rename collides with an existing key.
// The engine never auto-suffixes; resolving the collision is the caller's
// responsibility.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("reconcile: key %q already exists", e.Key)
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}
