package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNextJobReschedule(t *testing.T) {
	s := New()
	s.Add("/api/alerts", 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	j1, err := s.NextJob(ctx)
	if err != nil {
		t.Fatalf("NextJob first: %v", err)
	}
	if j1.Path != "/api/alerts" {
		t.Fatalf("unexpected path: %s", j1.Path)
	}

	j2, err := s.NextJob(ctx)
	if err != nil {
		t.Fatalf("NextJob second: %v", err)
	}
	if j2.Path != "/api/alerts" {
		t.Fatalf("unexpected path second: %s", j2.Path)
	}
	if !j2.NextRun().After(j1.NextRun()) {
		t.Fatalf("nextRun not advanced: first=%v second=%v", j1.NextRun(), j2.NextRun())
	}
	if got := j2.NextRun().Sub(j1.NextRun()); got != 50*time.Millisecond {
		t.Fatalf("cadence drifted: %v", got)
	}
}

func TestNextJobWaitsForDueJob(t *testing.T) {
	s := New()
	now := time.Now()
	s.addWithNextRun("/api/health", time.Minute, now)
	s.addWithNextRun("/api/status", time.Minute, now.Add(30*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	j1, err := s.NextJob(ctx)
	if err != nil {
		t.Fatalf("NextJob: %v", err)
	}
	if j1.Path != "/api/health" {
		t.Fatalf("first job should be /api/health, got %+v", j1)
	}

	if j2, err := s.NextJob(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second job is not due yet, got job=%+v err=%v", j2, err)
	}
}

func TestAddIsOnePerPath(t *testing.T) {
	s := New()

	if !s.Add("/api/scans", time.Second) {
		t.Fatalf("first add should succeed")
	}
	if s.Add("/api/scans", time.Second) {
		t.Fatalf("second add for the same path should be rejected")
	}
	if s.Len() != 1 {
		t.Fatalf("expected one job, got %d", s.Len())
	}
}

func TestRemoveStopsJob(t *testing.T) {
	s := New()
	s.Add("/api/pending", 10*time.Millisecond)
	s.Add("/api/security", time.Hour)

	if !s.Remove("/api/pending") {
		t.Fatalf("remove should report the job existed")
	}
	if s.Remove("/api/pending") {
		t.Fatalf("second remove should be a no-op")
	}
	if s.Has("/api/pending") {
		t.Fatalf("path still scheduled after remove")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	j, err := s.NextJob(ctx)
	if err != nil {
		t.Fatalf("NextJob: %v", err)
	}
	if j.Path != "/api/security" {
		t.Fatalf("expected /api/security, got %+v", j)
	}

	if j, err := s.NextJob(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got job=%+v err=%v", j, err)
	}
}

func TestAddWakesWaiter(t *testing.T) {
	s := New()
	s.Add("/api/status", time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := s.NextJob(ctx); err != nil {
		t.Fatalf("NextJob: %v", err)
	}

	got := make(chan *PollJob, 1)
	go func() {
		j, _ := s.NextJob(ctx)
		got <- j
	}()

	time.Sleep(20 * time.Millisecond)
	s.Add("/api/alerts", time.Hour)

	select {
	case j := <-got:
		if j == nil || j.Path != "/api/alerts" {
			t.Fatalf("expected /api/alerts, got %+v", j)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter was not woken by Add")
	}
}

func TestCloseReleasesWaiters(t *testing.T) {
	s := New()

	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := s.NextJob(context.Background())
			errCh <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	s.Close()
	s.Close()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errCh:
			if !errors.Is(err, ErrClosed) {
				t.Fatalf("expected ErrClosed, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("waiter not released by Close")
		}
	}

	if s.Add("/api/health", time.Second) {
		t.Fatalf("add after close should fail")
	}
}
