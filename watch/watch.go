package watch

import (
	internal "github.com/leweaver/filewatch/internal/watch"
)

// Re-export the engine types so callers only import this package.
type (
	// EventKind is the portable classification of a filesystem change.
	EventKind = internal.EventKind

	// Event is one observed change, relative to the watch root.
	Event = internal.Event

	// Session is one live watch bound to one OS handle.
	Session = internal.Session

	// Options adjusts session construction.
	Options = internal.Options

	// Callback receives one invocation per observed change.
	Callback = internal.Callback

	// Target is a resolved watch target.
	Target = internal.Target

	// Mode says whether a session watches one file or a directory.
	Mode = internal.Mode

	// RawEventSource is the OS notification facility behind a session.
	RawEventSource = internal.RawEventSource

	// RawRecord is one decoded notification from the OS facility.
	RawRecord = internal.RawRecord

	// Action is a decoded OS action code.
	Action = internal.Action

	// PathAccessError reports an unreadable watch target.
	PathAccessError = internal.PathAccessError

	// ResourceError reports a failed watch registration.
	ResourceError = internal.ResourceError
)

// Event kinds.
const (
	Added      = internal.Added
	Removed    = internal.Removed
	Modified   = internal.Modified
	RenamedOld = internal.RenamedOld
	RenamedNew = internal.RenamedNew
)

// Watch modes.
const (
	ModeDirectory  = internal.ModeDirectory
	ModeSingleFile = internal.ModeSingleFile
)

// Raw action codes, exported for custom RawEventSource implementations.
const (
	ActionCreate    = internal.ActionCreate
	ActionRemove    = internal.ActionRemove
	ActionModify    = internal.ActionModify
	ActionRenameOld = internal.ActionRenameOld
	ActionRenameNew = internal.ActionRenameNew
	ActionChmod     = internal.ActionChmod
)

// ErrSourceClosed is returned by RawEventSource.ReadBatch after Cancel.
var ErrSourceClosed = internal.ErrSourceClosed

// New resolves path and starts watching it, delivering every observed
// change to callback until Close.
func New(path string, callback Callback) (*Session, error) {
	return internal.New(path, callback)
}

// NewWithOptions is New with an explicit logger or event source.
func NewWithOptions(path string, callback Callback, opts Options) (*Session, error) {
	return internal.NewWithOptions(path, callback, opts)
}

// Resolve stats path and derives the watch root without starting a session.
func Resolve(path string) (*Target, error) {
	return internal.Resolve(path)
}
