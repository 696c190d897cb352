// Package watch implements single-target filesystem watch sessions.
//
// A session binds one watch target (a file or a directory) to one OS
// notification handle and a pair of goroutines: a monitor that reads and
// decodes raw notification batches, and a dispatcher that drains the shared
// event queue and runs the user callback. Events are delivered one at a
// time, in the order the OS reported them.
package watch

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// openSource opens the native event source for the build platform.
// Swappable for tests that exercise registration failure.
var openSource = newRawEventSource

// Callback receives one invocation per observed change. Path is relative to
// the watch root. Calls are serialized and ordered; a panicking callback is
// contained and does not stop delivery of later events.
type Callback func(path string, kind EventKind)

// Options adjusts session construction. The zero value is ready to use.
type Options struct {
	// Logger receives structured diagnostics. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Source overrides the platform event source; when nil the native
	// source for the build platform is opened on the resolved watch root.
	Source RawEventSource
}

// Session is one live watch: a resolved target, an OS notification source,
// and a monitor/dispatch goroutine pair bridged by an event queue. One
// session owns exactly one OS handle and one goroutine pair; watching N
// paths takes N sessions.
type Session struct {
	target   *Target
	source   RawEventSource
	callback Callback
	queue    *eventQueue
	logger   *zap.Logger

	shutdown     atomic.Bool
	monitorDone  chan struct{}
	dispatchDone chan struct{}
	done         chan struct{}
	doneOnce     sync.Once
	closeOnce    sync.Once

	errMu sync.Mutex
	err   error
}

// New resolves path and starts watching it, delivering every observed
// change to callback until Close.
func New(path string, callback Callback) (*Session, error) {
	return NewWithOptions(path, callback, Options{})
}

// NewWithOptions is New with an explicit logger or event source.
// Construction is atomic: on error no goroutines are running and no OS
// resources are held.
func NewWithOptions(path string, callback Callback, opts Options) (*Session, error) {
	if callback == nil {
		return nil, errors.New("filewatch: nil callback")
	}
	target, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	source := opts.Source
	if source == nil {
		source, err = openSource(target.Root)
		if err != nil {
			return nil, err
		}
	}
	s := &Session{
		target:       target,
		source:       source,
		callback:     callback,
		queue:        newEventQueue(),
		logger:       logger,
		monitorDone:  make(chan struct{}),
		dispatchDone: make(chan struct{}),
		done:         make(chan struct{}),
	}
	go s.monitor()
	go s.dispatch()
	logger.Debug("watch session started",
		zap.String("root", target.Root),
		zap.String("mode", target.Mode.String()),
		zap.String("filter", target.FilterName))
	return s, nil
}

// Target returns the resolved watch target.
func (s *Session) Target() *Target { return s.target }

// monitor reads raw batches until shutdown, decodes each record through the
// event table, filters, and pushes the surviving events to the queue with a
// single wake per batch.
func (s *Session) monitor() {
	defer close(s.monitorDone)
	for !s.shutdown.Load() {
		raw, err := s.source.ReadBatch()
		if err != nil {
			if errors.Is(err, ErrSourceClosed) {
				return
			}
			s.fail(err)
			return
		}
		batch := make([]Event, 0, len(raw))
		for _, rec := range raw {
			kind, ok := eventKinds[rec.Action]
			if !ok {
				continue
			}
			if !s.target.passFilter(rec.Name) {
				continue
			}
			batch = append(batch, Event{Path: rec.Name, Kind: kind})
		}
		if len(batch) == 0 {
			continue
		}
		s.logger.Debug("batch decoded", zap.Int("events", len(batch)))
		s.queue.push(batch)
	}
}

// fail records a terminal monitor error and winds the session down so it
// does not go quietly dark: the queue closes, the dispatcher drains what is
// left and exits, and Done/Alive/Err expose the state to the caller.
func (s *Session) fail(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
	s.logger.Error("monitor wait failed, session stopping", zap.Error(err))
	s.queue.close()
}

// dispatch drains the queue and runs the callback, one event at a time, in
// arrival order. It exits only once the queue is closed and empty, so
// everything enqueued before shutdown is still delivered.
func (s *Session) dispatch() {
	defer s.doneOnce.Do(func() { close(s.done) })
	defer close(s.dispatchDone)
	for {
		batch, ok := s.queue.take()
		if !ok {
			return
		}
		for _, ev := range batch {
			s.invoke(ev)
		}
	}
}

// invoke shields the dispatch loop from the callback. A panic is recovered
// and discarded; one misbehaving invocation must not suppress delivery of
// the events behind it.
func (s *Session) invoke(ev Event) {
	defer func() {
		_ = recover()
	}()
	s.callback(ev.Path, ev.Kind)
}

// Alive reports whether the session is still watching. It turns false after
// Close and after a terminal monitor failure.
func (s *Session) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return !s.shutdown.Load()
	}
}

// Done is closed once the session has stopped delivering events, whether
// through Close or a terminal monitor failure.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the terminal monitor error, or nil if the session is running
// or was shut down cleanly.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close stops the session and blocks until both goroutines have exited and
// the OS handle is released. Teardown order matters: the shutdown flag goes
// up first, the source cancel unblocks the monitor's pending wait, and only
// after the monitor has joined does the queue close wake the dispatcher, so
// its final drain sees a quiescent queue and already-enqueued events are
// still delivered. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.shutdown.Store(true)
		s.source.Cancel()
		<-s.monitorDone
		s.queue.close()
		<-s.dispatchDone
		err = s.source.Release()
		s.logger.Debug("watch session closed", zap.String("root", s.target.Root))
	})
	return err
}
