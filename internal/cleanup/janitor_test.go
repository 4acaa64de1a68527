package cleanup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"jar-translator/internal/shared/storage/object"
	"jar-translator/internal/shared/storage/object/local"
	"jar-translator/internal/shared/telemetry"
)

type fakeSweeper struct {
	mu      sync.Mutex
	calls   []string
	cutoffs []time.Time
	fail    map[string]error
}

func (f *fakeSweeper) Sweep(ctx context.Context, namespace string, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, namespace)
	f.cutoffs = append(f.cutoffs, cutoff)
	if err := f.fail[namespace]; err != nil {
		return 0, err
	}
	return 2, nil
}

func (f *fakeSweeper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnceSweepsEveryNamespace(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	sw := &fakeSweeper{fail: map[string]error{object.NamespaceUploads: errors.New("list failed")}}
	j := NewJanitor(sw, 30*time.Minute, time.Hour)
	j.Now = func() time.Time { return now }

	if got := j.RunOnce(context.Background()); got != 2 {
		t.Fatalf("removed = %d, want 2", got)
	}
	if len(sw.calls) != 2 {
		t.Fatalf("expected both namespaces swept after a failure, got %v", sw.calls)
	}
	for _, c := range sw.cutoffs {
		if !c.Equal(now.Add(-30 * time.Minute)) {
			t.Fatalf("unexpected cutoff %v", c)
		}
	}
}

func TestRunSweepsAtStartAndStopsOnCancel(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	sw := &fakeSweeper{}
	j := NewJanitor(sw, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sw.callCount() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if sw.callCount() < 4 {
		t.Fatalf("expected at least one tick after the initial sweep, got %d calls", sw.callCount())
	}
}

func TestJanitorWithLocalStore(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	dir := t.TempDir()
	store := local.New(dir)
	ctx := context.Background()

	key, _, _, err := store.Save(ctx, object.NamespaceUploads, "old.jar", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	past := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, filepath.FromSlash(key)), past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := store.SaveWithKey(ctx, "outputs/bytecode_0/translated_new.jar", "", strings.NewReader("y")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}

	if got := NewJanitor(store, time.Hour, time.Hour).RunOnce(ctx); got != 1 {
		t.Fatalf("removed = %d, want 1", got)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("old upload should be gone: %v", err)
	}
}
