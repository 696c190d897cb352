package watch

// EventKind is the portable classification of a filesystem change. Platform
// notification data is normalized into this small vocabulary before it
// reaches the callback.
type EventKind int

const (
	// Added means a file appeared under the watch root.
	Added EventKind = iota
	// Removed means a file disappeared from the watch root.
	Removed
	// Modified means a file's contents changed.
	Modified
	// RenamedOld carries the old name of a rename. The new name follows as
	// a separate RenamedNew event; no pairing metadata connects the two
	// beyond arrival order.
	RenamedOld
	// RenamedNew carries the new name of a rename.
	RenamedNew
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case RenamedOld:
		return "renamed-old"
	case RenamedNew:
		return "renamed-new"
	default:
		return "unknown"
	}
}

// Event is one observed change. Path is relative to the watch root. An
// event is created once by the monitor loop and consumed once by the
// dispatcher.
type Event struct {
	Path string
	Kind EventKind
}

// eventKinds maps decoded action codes to the portable vocabulary. Actions
// without an entry (for example ActionChmod) are silently skipped by the
// monitor loop.
var eventKinds = map[Action]EventKind{
	ActionCreate:    Added,
	ActionRemove:    Removed,
	ActionModify:    Modified,
	ActionRenameOld: RenamedOld,
	ActionRenameNew: RenamedNew,
}
