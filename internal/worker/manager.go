package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Worker interface {
	Run(ctx context.Context) error
}

type Factory func(id int) Worker

// Manager keeps num workers running and restarts a worker that returns an
// error after backoff.
type Manager struct {
	factory     Factory
	num         int
	backoff     time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	startedOnce sync.Once
}

func NewManager(num int, backoff time.Duration, f Factory) *Manager {
	if num <= 0 {
		num = 1
	}
	return &Manager{
		factory: f,
		num:     num,
		backoff: backoff,
	}
}

// Start launches the workers once. In dashpoll each worker is a FetchWorker
// that takes due poll jobs from the scheduler and hands them to the
// registry. A worker returns nil when the scheduler closes; any other error
// restarts it after the backoff.
func (m *Manager) Start(parent context.Context) {
	m.startedOnce.Do(func() {
		m.ctx, m.cancel = context.WithCancel(parent)
		for i := 0; i < m.num; i++ {
			id := i + 1
			m.wg.Add(1)
			go m.runOne(id)
		}
	})
}

func (m *Manager) runOne(id int) {
	defer m.wg.Done()

	for {
		w := m.factory(id)
		err := w.Run(m.ctx)

		if err == nil || errors.Is(err, context.Canceled) {
			return
		}

		log.Warnf("worker %d stopped with error: %v", id, err)

		select {
		case <-time.After(m.backoff):
		case <-m.ctx.Done():
			return
		}
	}
}

// Stop cancels the workers and waits for them to return. Fetches already
// handed to the registry are not waited for here; Registry.Stop does that.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
