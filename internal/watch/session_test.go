package watch

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource feeds scripted batches to a session, standing in for the OS
// notification facility.
type fakeSource struct {
	batches chan []RawRecord
	readErr chan error
	done    chan struct{}

	cancelOnce sync.Once
	released   atomic.Bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		batches: make(chan []RawRecord, 16),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (f *fakeSource) ReadBatch() ([]RawRecord, error) {
	select {
	case <-f.done:
		return nil, ErrSourceClosed
	case err := <-f.readErr:
		return nil, err
	case batch := <-f.batches:
		return batch, nil
	}
}

func (f *fakeSource) Cancel()        { f.cancelOnce.Do(func() { close(f.done) }) }
func (f *fakeSource) Release() error { f.released.Store(true); return nil }

func collectEvents(capacity int) (chan Event, Callback) {
	events := make(chan Event, capacity)
	return events, func(path string, kind EventKind) {
		events <- Event{Path: path, Kind: kind}
	}
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for an event")
		return Event{}
	}
}

func TestSessionDeliversInOrder(t *testing.T) {
	source := newFakeSource()
	events, callback := collectEvents(16)

	session, err := NewWithOptions(t.TempDir(), callback, Options{Source: source})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}

	source.batches <- []RawRecord{
		{Name: "a.txt", Action: ActionCreate},
		{Name: "a.txt", Action: ActionModify},
	}
	source.batches <- []RawRecord{
		{Name: "a.txt", Action: ActionRemove},
	}

	want := []Event{
		{"a.txt", Added},
		{"a.txt", Modified},
		{"a.txt", Removed},
	}
	for i, expected := range want {
		if got := waitEvent(t, events); got != expected {
			t.Errorf("Event %d: got %+v, want %+v", i, got, expected)
		}
	}

	if err := session.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !source.released.Load() {
		t.Error("Close should release the source")
	}
}

func TestSessionSingleFileFilter(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "target.txt")
	if err := os.WriteFile(file, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	source := newFakeSource()
	events, callback := collectEvents(16)

	session, err := NewWithOptions(file, callback, Options{Source: source})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}
	defer session.Close()

	source.batches <- []RawRecord{
		{Name: "sibling.txt", Action: ActionCreate},
		{Name: "target.txt", Action: ActionModify},
		{Name: "sibling.txt", Action: ActionModify},
	}

	got := waitEvent(t, events)
	if got.Path != "target.txt" || got.Kind != Modified {
		t.Errorf("Expected target.txt Modified, got %+v", got)
	}

	// The sibling events must never arrive.
	select {
	case ev := <-events:
		t.Errorf("Unexpected event passed the filter: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSessionSkipsUnmappedActions(t *testing.T) {
	source := newFakeSource()
	events, callback := collectEvents(16)

	session, err := NewWithOptions(t.TempDir(), callback, Options{Source: source})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}
	defer session.Close()

	source.batches <- []RawRecord{
		{Name: "a.txt", Action: ActionChmod},
		{Name: "b.txt", Action: ActionCreate},
	}

	got := waitEvent(t, events)
	if got.Path != "b.txt" || got.Kind != Added {
		t.Errorf("Expected b.txt Added, got %+v", got)
	}
}

func TestSessionCallbackPanicIsolation(t *testing.T) {
	source := newFakeSource()
	events := make(chan Event, 16)
	var calls atomic.Int32

	callback := func(path string, kind EventKind) {
		if calls.Add(1) == 1 {
			panic("misbehaving callback")
		}
		events <- Event{Path: path, Kind: kind}
	}

	session, err := NewWithOptions(t.TempDir(), callback, Options{Source: source})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}
	defer session.Close()

	source.batches <- []RawRecord{
		{Name: "first.txt", Action: ActionCreate},
		{Name: "second.txt", Action: ActionCreate},
	}

	got := waitEvent(t, events)
	if got.Path != "second.txt" {
		t.Errorf("Expected delivery of second.txt after the panic, got %+v", got)
	}
}

func TestSessionDrainsQueueOnClose(t *testing.T) {
	source := newFakeSource()
	started := make(chan struct{})
	var startOnce sync.Once
	var mu sync.Mutex
	var got []Event

	callback := func(path string, kind EventKind) {
		startOnce.Do(func() { close(started) })
		time.Sleep(20 * time.Millisecond) // keep events queued behind us
		mu.Lock()
		got = append(got, Event{Path: path, Kind: kind})
		mu.Unlock()
	}

	session, err := NewWithOptions(t.TempDir(), callback, Options{Source: source})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}

	batch := make([]RawRecord, 5)
	for i := range batch {
		batch[i] = RawRecord{Name: string(rune('a'+i)) + ".txt", Action: ActionCreate}
	}
	source.batches <- batch

	// Once the first callback has started, the whole batch sits in the
	// queue. Close must not return before every event is delivered.
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for dispatch to start")
	}
	if err := session.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 5 {
		t.Errorf("Expected all 5 queued events delivered before Close returned, got %d", len(got))
	}
}

func TestSessionTerminalFailure(t *testing.T) {
	source := newFakeSource()
	_, callback := collectEvents(16)

	session, err := NewWithOptions(t.TempDir(), callback, Options{Source: source})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}

	if !session.Alive() {
		t.Error("Session should be alive right after construction")
	}

	waitErr := errors.New("wait operation failed")
	source.readErr <- waitErr

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Session did not surface the monitor failure")
	}
	if session.Alive() {
		t.Error("Session should not report alive after a terminal failure")
	}
	if !errors.Is(session.Err(), waitErr) {
		t.Errorf("Expected Err()=%v, got %v", waitErr, session.Err())
	}

	// Teardown still works and reports the terminal error.
	if err := session.Close(); err != nil {
		t.Errorf("Close after failure returned %v", err)
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	source := newFakeSource()
	_, callback := collectEvents(1)

	session, err := NewWithOptions(t.TempDir(), callback, Options{Source: source})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("First Close failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if session.Err() != nil {
		t.Errorf("Clean shutdown should leave Err nil, got %v", session.Err())
	}
}

func TestNewMissingPath(t *testing.T) {
	_, callback := collectEvents(1)
	_, err := New(filepath.Join(t.TempDir(), "missing"), callback)
	if err == nil {
		t.Fatal("Expected an error for a missing path")
	}
	var pathErr *PathAccessError
	if !errors.As(err, &pathErr) {
		t.Errorf("Expected *PathAccessError, got %T", err)
	}
}

func TestNewRegistrationFailure(t *testing.T) {
	regErr := &ResourceError{Path: "/tmp/w", Err: errors.New("watch table exhausted")}
	restore := openSource
	openSource = func(root string) (RawEventSource, error) { return nil, regErr }
	defer func() { openSource = restore }()

	_, callback := collectEvents(1)
	before := runtime.NumGoroutine()

	_, err := New(t.TempDir(), callback)
	if err == nil {
		t.Fatal("Expected an error when registration fails")
	}
	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("Expected *ResourceError, got %T: %v", err, err)
	}

	// Construction is atomic: a failed registration leaves no goroutines
	// behind.
	time.Sleep(50 * time.Millisecond)
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("Goroutines leaked by failed construction: before=%d after=%d", before, after)
	}
}

func TestNewNilCallback(t *testing.T) {
	if _, err := New(t.TempDir(), nil); err == nil {
		t.Fatal("Expected an error for a nil callback")
	}
}
