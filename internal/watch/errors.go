package watch

import (
	"errors"
	"fmt"
)

// ErrSourceClosed is returned by RawEventSource.ReadBatch after Cancel has
// unblocked it. The monitor loop treats it as a clean shutdown signal.
var ErrSourceClosed = errors.New("filewatch: event source closed")

// PathAccessError reports that the watch target's attributes could not be
// read at construction time (missing path, permission denied). The OS error
// is reachable through Unwrap.
type PathAccessError struct {
	Path string
	Err  error
}

func (e *PathAccessError) Error() string {
	return fmt.Sprintf("filewatch: cannot access %s: %v", e.Path, e.Err)
}

func (e *PathAccessError) Unwrap() error { return e.Err }

// ResourceError reports that the OS failed to allocate or register a watch,
// for example on descriptor or watch-table exhaustion.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("filewatch: cannot register watch on %s: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
