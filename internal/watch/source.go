package watch

// Action is a decoded OS action code. Sources translate their platform's
// notification masks into actions; the monitor loop maps actions to
// EventKinds through a fixed table and drops anything unmapped.
type Action uint32

const (
	ActionCreate Action = iota + 1
	ActionRemove
	ActionModify
	ActionRenameOld
	ActionRenameNew
	// ActionChmod is emitted by the portable source for attribute changes.
	// It has no entry in the event table and never reaches the callback.
	ActionChmod
)

// RawRecord is one decoded notification from the OS facility: the changed
// name relative to the watch root, and what happened to it.
type RawRecord struct {
	Name   string
	Action Action
}

// RawEventSource is the OS notification facility behind a session. It is a
// black box to the session: register happens at construction, then the
// monitor loop only reads, and teardown cancels and releases. The two real
// implementations are inotify (Linux) and an fsnotify fallback elsewhere;
// tests inject fakes through Options.Source.
type RawEventSource interface {
	// ReadBatch blocks until at least one record is available or Cancel is
	// called. After Cancel it returns ErrSourceClosed. Any other error is
	// terminal for the session.
	ReadBatch() ([]RawRecord, error)

	// Cancel unblocks a pending ReadBatch and stops further reads. Safe to
	// call more than once.
	Cancel()

	// Release frees the OS resources. Called exactly once, after Cancel
	// and after the monitor goroutine has exited.
	Release() error
}
