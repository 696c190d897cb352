//go:build !linux

package watch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fsnotifySource adapts fsnotify's channel API to the blocking batch reads
// the monitor loop expects. fsnotify reports a rename's old name as Rename
// and its new name as a plain Create, so on these platforms renamed-new
// surfaces as Added.
type fsnotifySource struct {
	watcher *fsnotify.Watcher
	done    chan struct{}

	cancelOnce sync.Once
}

func newRawEventSource(root string) (RawEventSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &ResourceError{Path: root, Err: err}
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, &ResourceError{Path: root, Err: err}
	}
	return &fsnotifySource{watcher: watcher, done: make(chan struct{})}, nil
}

// ReadBatch blocks for the first event of a burst, then drains whatever
// else is already queued into the same batch so the session wakes its
// dispatcher once per burst rather than once per event.
func (s *fsnotifySource) ReadBatch() ([]RawRecord, error) {
	for {
		select {
		case <-s.done:
			return nil, ErrSourceClosed
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil, ErrSourceClosed
			}
			return nil, err
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil, ErrSourceClosed
			}
			batch := appendRecord(nil, ev)
		drain:
			for {
				select {
				case ev, ok := <-s.watcher.Events:
					if !ok {
						break drain
					}
					batch = appendRecord(batch, ev)
				default:
					break drain
				}
			}
			if len(batch) == 0 {
				continue
			}
			return batch, nil
		}
	}
}

func (s *fsnotifySource) Cancel() {
	s.cancelOnce.Do(func() { close(s.done) })
}

func (s *fsnotifySource) Release() error {
	return s.watcher.Close()
}

func appendRecord(batch []RawRecord, ev fsnotify.Event) []RawRecord {
	action, ok := fsnotifyAction(ev.Op)
	if !ok {
		return batch
	}
	return append(batch, RawRecord{Name: filepath.Base(ev.Name), Action: action})
}

func fsnotifyAction(op fsnotify.Op) (Action, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ActionCreate, true
	case op.Has(fsnotify.Remove):
		return ActionRemove, true
	case op.Has(fsnotify.Write):
		return ActionModify, true
	case op.Has(fsnotify.Rename):
		return ActionRenameOld, true
	case op.Has(fsnotify.Chmod):
		return ActionChmod, true
	}
	return 0, false
}
