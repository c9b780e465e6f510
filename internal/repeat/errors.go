package repeat

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Handlers map these to HTTP statuses; nothing in this
// package panics or terminates the process on a request error.
var (
	ErrNotFound     = errors.New("not found")
	ErrNameConflict = errors.New("name already in use")
	ErrForbidden    = errors.New("operation not allowed")
)

// StorageError reports a backing-store failure other than a missing file.
// A batch that hits one is aborted whole, with no in-memory mutation.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
