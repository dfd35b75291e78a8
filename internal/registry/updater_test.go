package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBuilder struct {
	calls atomic.Int32
	fail  func(call int32) bool
}

func (f *fakeBuilder) Build(ctx context.Context) (*Snapshot, error) {
	n := f.calls.Add(1)
	if f.fail != nil && f.fail(n) {
		return nil, errors.New("upstream down")
	}
	return testSnapshot("example.com"), nil
}

func TestUpdateOnce_Success(t *testing.T) {
	holder := NewHolder()
	b := &fakeBuilder{}

	if err := updateOnce(context.Background(), time.Second, b, holder); err != nil {
		t.Fatalf("updateOnce error: %v", err)
	}

	got := holder.Get()
	if got == nil {
		t.Fatal("holder not updated")
	}
	rs, ok := got.Get("reject")
	if !ok || len(rs.Result.Entries) != 1 || rs.Result.Entries[0] != "example.com" {
		t.Fatalf("unexpected snapshot contents: %+v", rs)
	}
}

func TestUpdateOnce_FailureKeepsPrevious(t *testing.T) {
	holder := NewHolder()
	prev := testSnapshot("old.com")
	holder.Set(prev)

	b := &fakeBuilder{fail: func(int32) bool { return true }}
	if err := updateOnce(context.Background(), time.Second, b, holder); err == nil {
		t.Fatal("expected error")
	}
	if holder.Get() != prev {
		t.Fatal("failed build replaced the previous snapshot")
	}
}

func TestStart_TriggerRebuilds(t *testing.T) {
	holder := NewHolder()
	b := &fakeBuilder{}
	trigger := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, Config{Interval: time.Hour, BuildTimeout: time.Second}, b, holder, trigger)
	}()

	trigger <- struct{}{}
	trigger <- struct{}{}

	deadline := time.After(2 * time.Second)
	for b.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("builds = %d, want >= 3", b.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Start() = %v, want context.Canceled", err)
	}
	if !holder.Ready() {
		t.Fatal("holder not ready after builds")
	}
}

func TestStart_BacksOffAfterFailure(t *testing.T) {
	holder := NewHolder()
	b := &fakeBuilder{fail: func(n int32) bool { return n == 2 }}
	trigger := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, Config{
			Interval:       time.Hour,
			BuildTimeout:   time.Second,
			InitialBackoff: time.Hour,
			MaxBackoff:     time.Hour,
		}, b, holder, trigger)
	}()

	trigger <- struct{}{}

	deadline := time.After(2 * time.Second)
	for b.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("builds = %d, want 2", b.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	// stuck in the one hour backoff; cancel must still return promptly
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not stop during backoff")
	}
}

func TestStart_DisabledInterval(t *testing.T) {
	if err := Start(context.Background(), Config{}, &fakeBuilder{}, NewHolder(), nil); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
}
