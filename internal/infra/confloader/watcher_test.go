package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/blazar-go/internal/telemetry/logger"
)

func startWatcher(t *testing.T, path string, onChange func()) *Watcher {
	t.Helper()
	w, err := NewWatcher(path, onChange,
		WithWatcherLogger(logger.Discard()),
		WithDebounce(20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Start()
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func waitCount(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if n.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("callbacks = %d, want %d", n.Load(), want)
}

// ============================================================================
// Construction
// ============================================================================

func TestNewWatcher_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		path     string
		onChange func()
	}{
		{"empty path", "", func() {}},
		{"nil callback", filepath.Join(dir, "blazar.yaml"), nil},
		{"missing directory", filepath.Join(dir, "nope", "blazar.yaml"), func() {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWatcher(tt.path, tt.onChange); err == nil {
				t.Error("NewWatcher() expected error")
			}
		})
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blazar.yaml")
	w, err := NewWatcher(path, func() {})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = w.Stop()
		_ = w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked")
	}
}

// ============================================================================
// Events
// ============================================================================

func TestWatcher_FileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blazar.yaml")
	writeFile(t, path, "log:\n  level: info\n")

	var calls atomic.Int32
	startWatcher(t, path, func() { calls.Add(1) })

	writeFile(t, path, "log:\n  level: debug\n")
	waitCount(t, &calls, 1)
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blazar.yaml")
	writeFile(t, path, "")

	var calls atomic.Int32
	w, err := NewWatcher(path, func() { calls.Add(1) },
		WithWatcherLogger(logger.Discard()),
		WithDebounce(200*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Start()
	defer w.Stop()

	for i := 0; i < 5; i++ {
		writeFile(t, path, "log:\n  level: warn\n")
	}
	waitCount(t, &calls, 1)

	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callbacks = %d, want 1 for one burst", got)
	}
}

func TestWatcher_ReplacedByRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blazar.yaml")
	writeFile(t, path, "")

	var calls atomic.Int32
	startWatcher(t, path, func() { calls.Add(1) })

	tmp := filepath.Join(dir, ".blazar.yaml.swp")
	writeFile(t, tmp, "log:\n  level: error\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	waitCount(t, &calls, 1)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blazar.yaml")
	writeFile(t, path, "")

	var calls atomic.Int32
	startWatcher(t, path, func() { calls.Add(1) })

	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callbacks = %d for an unrelated file", got)
	}
}

func TestWatcher_NoCallbackAfterStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blazar.yaml")
	writeFile(t, path, "")

	var calls atomic.Int32
	w := startWatcher(t, path, func() { calls.Add(1) })
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	writeFile(t, path, "log:\n  level: debug\n")
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callbacks = %d after Stop", got)
	}
}
