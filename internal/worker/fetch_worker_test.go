package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rin0913/dashpoll/internal/scheduler"
)

type recordingPoller struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPoller) Poll(ctx context.Context, path, runner string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, runner+" "+path)
	return true
}

func (p *recordingPoller) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func TestFetchWorkerPollsDueJobs(t *testing.T) {
	s := scheduler.New()
	s.Add("/api/health", time.Hour)
	s.Add("/api/status", time.Hour)

	p := &recordingPoller{}
	w := NewFetchWorker("fetch#1", s, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(p.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"fetch#1 /api/health", "fetch#1 /api/status"}, p.snapshot())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after cancel")
	}
}

func TestFetchWorkerExitsCleanlyOnClose(t *testing.T) {
	s := scheduler.New()
	w := NewFetchWorker("fetch#1", s, &recordingPoller{})

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	s.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after scheduler close")
	}
}
