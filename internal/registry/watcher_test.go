package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_CoalescesChanges(t *testing.T) {
	dir := t.TempDir()
	out := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{dir, filepath.Join(dir, "missing")}, 50*time.Millisecond, out)
	}()

	// give the watcher time to register
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(dir, "rules.txt"), []byte("DOMAIN,a.com\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-out:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	select {
	case <-out:
		t.Fatal("burst of writes produced more than one notification")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Watch() = %v, want context.Canceled", err)
	}
}
