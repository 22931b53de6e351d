package retention

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	cutoffs []time.Time
	rows    int64
	err     error
}

func (f *fakeStore) DeleteOldData(cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.rows, f.err
}

func TestPruner_Prune(t *testing.T) {
	store := &fakeStore{rows: 12}
	var reported int64
	p := NewPruner(store, 30, func(rows int64) { reported = rows })
	now := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	removed, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if removed != 12 || reported != 12 {
		t.Errorf("removed=%d reported=%d, want 12", removed, reported)
	}
	want := time.Date(2026, 9, 19, 3, 0, 0, 0, time.UTC)
	if len(store.cutoffs) != 1 || !store.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", store.cutoffs, want)
	}
}

func TestPruner_Disabled(t *testing.T) {
	store := &fakeStore{}
	p := NewPruner(store, 0, nil)

	if _, err := p.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if len(store.cutoffs) != 0 {
		t.Error("Disabled pruner should not touch the store")
	}
}

func TestPruner_Errors(t *testing.T) {
	store := &fakeStore{err: errors.New("locked")}
	called := false
	p := NewPruner(store, 7, func(int64) { called = true })

	if _, err := p.Prune(context.Background()); err == nil {
		t.Error("Expected store error")
	}
	if called {
		t.Error("onPrune should not run after a failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Prune(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context error, got %v", err)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(NewPruner(&fakeStore{}, 30, nil), "0 3 * * *")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("Scheduler should be running")
	}

	next := s.NextRun()
	if next == nil || next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("Unexpected next run %v", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("Scheduler should be stopped")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s := NewScheduler(NewPruner(&fakeStore{}, 30, nil), "@every 1h")
	ctx, cancel := context.WithCancel(context.Background())

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("Scheduler should stop after context cancellation")
	}
}

func TestScheduler_InvalidAndEmpty(t *testing.T) {
	pruner := NewPruner(&fakeStore{}, 30, nil)

	if err := NewScheduler(pruner, "not a schedule").Start(context.Background()); err == nil {
		t.Error("Expected invalid schedule error")
	}

	s := NewScheduler(pruner, "")
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("Empty schedule should be a no-op, got %v", err)
	}
	if s.IsRunning() || s.NextRun() != nil {
		t.Error("Empty schedule should not run")
	}
}
