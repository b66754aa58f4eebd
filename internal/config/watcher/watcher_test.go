package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func waitEvent(t *testing.T, events <-chan Event, op Operation) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Op == op {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", op)
			return Event{}
		}
	}
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_WriteAndRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "windbus.toml")
	if err := os.WriteFile(path, []byte("[window]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	events := make(chan Event, 16)
	w.OnChange(func(ev Event) { events <- ev })

	if err := os.WriteFile(path, []byte("[window]\ntitle = \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events, OpWrite)
	if ev.Path != path {
		t.Errorf("event path = %q, want %q", ev.Path, path)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events, OpRemove)
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "windbus.toml")

	w := newWatcher(t, WithDebounce(0))
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch of a file that does not exist yet failed: %v", err)
	}

	events := make(chan Event, 16)
	w.OnChange(func(ev Event) { events <- ev })

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, events, OpCreate)
	if ev.Path != path {
		t.Errorf("got event for %q", ev.Path)
	}
}

func TestWatcher_Coalesce(t *testing.T) {
	w := newWatcher(t, WithDebounce(time.Hour))
	path := "/tmp/windbus-coalesce.toml"

	tests := []struct {
		ops  []Operation
		want Operation
	}{
		{[]Operation{OpWrite, OpWrite}, OpWrite},
		{[]Operation{OpCreate, OpWrite}, OpCreate},
		{[]Operation{OpWrite, OpRemove, OpWrite}, OpRemove},
		{[]Operation{OpRemove, OpCreate}, OpCreate},
		{[]Operation{OpRename, OpWrite}, OpWrite},
	}

	for _, tt := range tests {
		for _, op := range tt.ops {
			w.queue(Event{Path: path, Op: op, Time: time.Now()})
		}

		w.mu.Lock()
		got := w.pending[path].op
		w.pending[path].timer.Stop()
		delete(w.pending, path)
		w.mu.Unlock()

		if got != tt.want {
			t.Errorf("coalesce %v = %v, want %v", tt.ops, got, tt.want)
		}
	}
}

func TestWatcher_UnwatchAndClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "windbus.yaml")

	w := newWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	if got := w.WatchedFiles(); len(got) != 1 || got[0] != path {
		t.Errorf("WatchedFiles = %v", got)
	}
	if err := w.Unwatch(path); err != nil {
		t.Fatalf("Unwatch failed: %v", err)
	}
	if got := w.WatchedFiles(); len(got) != 0 {
		t.Errorf("WatchedFiles after Unwatch = %v", got)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := w.Watch(path); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Watch after Close: expected ErrWatcherClosed, got %v", err)
	}
}

func TestSafeCallRecovers(t *testing.T) {
	safeCall(func(Event) { panic("boom") }, Event{})
}
