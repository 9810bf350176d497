package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/unitydialog/internal/platform"
)

type fakeTarget struct {
	syncs    atomic.Int32
	removed  []platform.WindowID
	problems []error
	panicOn  bool
}

func (f *fakeTarget) SyncClients() []platform.WindowID {
	f.syncs.Add(1)
	if f.panicOn {
		panic("boom")
	}
	return f.removed
}

func (f *fakeTarget) Check() []error {
	return f.problems
}

func TestReconciler_DefaultInterval(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{}, &fakeTarget{})
	if r.interval != 10*time.Second {
		t.Fatalf("interval = %v, want 10s", r.interval)
	}
}

func TestReconciler_ReportsNewProblemsOnce(t *testing.T) {
	a := errors.New("window 0x1 lists unknown transient 0x2")
	b := errors.New("window 0x3 has parent 0x4 that does not list it")
	target := &fakeTarget{problems: []error{a}}
	r := NewReconciler(ReconcilerConfig{}, target)

	if got := r.ReconcileNow(); got != 1 {
		t.Fatalf("first pass = %d new problems, want 1", got)
	}
	if got := r.ReconcileNow(); got != 0 {
		t.Fatalf("second pass = %d new problems, want 0", got)
	}

	target.problems = []error{a, b}
	if got := r.ReconcileNow(); got != 1 {
		t.Fatalf("third pass = %d new problems, want 1", got)
	}

	// A problem that clears and comes back is reported again.
	target.problems = nil
	r.ReconcileNow()
	target.problems = []error{a}
	if got := r.ReconcileNow(); got != 1 {
		t.Fatalf("after recovery = %d new problems, want 1", got)
	}
	if got := target.syncs.Load(); got != 5 {
		t.Fatalf("SyncClients called %d times, want 5", got)
	}
}

func TestReconciler_RecoversFromPanic(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{}, &fakeTarget{panicOn: true})
	if got := r.ReconcileNow(); got != 0 {
		t.Fatalf("panicking pass = %d, want 0", got)
	}
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	target := &fakeTarget{}
	r := NewReconciler(ReconcilerConfig{Interval: time.Millisecond}, target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for target.syncs.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("reconciler did not tick")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
