package watch

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(20*time.Millisecond, NewLog(io.Discard, io.Discard, "error", "text"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "main.scm")
	lib := filepath.Join(dir, "lib")
	for _, d := range []string{lib, filepath.Join(lib, ".hidden")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(script, []byte("(print 1)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t)
	if err := w.Add(script); err != nil {
		t.Fatalf("Add(file) error: %v", err)
	}
	if err := w.Add(lib); err != nil {
		t.Fatalf("Add(dir) error: %v", err)
	}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"script write", fsnotify.Event{Name: script, Op: fsnotify.Write}, true},
		{"script create", fsnotify.Event{Name: script, Op: fsnotify.Create}, true},
		{"script chmod", fsnotify.Event{Name: script, Op: fsnotify.Chmod}, false},
		{"sibling of script", fsnotify.Event{Name: filepath.Join(dir, "other.scm"), Op: fsnotify.Write}, false},
		{"script in dir", fsnotify.Event{Name: filepath.Join(lib, "util.scm"), Op: fsnotify.Write}, true},
		{"non-script in dir", fsnotify.Event{Name: filepath.Join(lib, "notes.txt"), Op: fsnotify.Write}, false},
		{"hidden dir skipped", fsnotify.Event{Name: filepath.Join(lib, ".hidden", "x.scm"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestAddMissing(t *testing.T) {
	w := newTestWatcher(t)
	if err := w.Add(filepath.Join(t.TempDir(), "missing.scm")); err == nil {
		t.Error("expected error watching a missing path")
	}
}

func TestRunReruns(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "main.scm")
	if err := os.WriteFile(script, []byte("(print 1)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t)
	if err := w.Add(script); err != nil {
		t.Fatal(err)
	}

	ran := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() { ran <- struct{}{} })
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an initial run")
	}

	// A burst of writes settles into a single rerun.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(script, []byte("(print 2)\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a rerun after the script changed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if runs := w.Runs(); runs < 2 {
		t.Errorf("expected at least 2 runs, got %d", runs)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	var stdout bytes.Buffer
	w, err := New(10*time.Millisecond, NewLog(&stdout, io.Discard, "info", "text"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx, func() {}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if w.Runs() != 1 {
		t.Errorf("expected the initial run only, got %d", w.Runs())
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no rerun messages, got %q", stdout.String())
	}
}
