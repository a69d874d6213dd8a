package worker

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/Rin0913/dashpoll/internal/scheduler"
)

// Poller runs one poll cycle for a path. It reports false when the cycle
// was skipped because the path is gone or still has a request in flight.
type Poller interface {
	Poll(ctx context.Context, path, runner string) bool
}

type JobSource interface {
	NextJob(ctx context.Context) (*scheduler.PollJob, error)
}

type FetchWorker struct {
	name   string
	jobs   JobSource
	poller Poller
}

func NewFetchWorker(name string, jobs JobSource, p Poller) *FetchWorker {
	return &FetchWorker{
		name:   name,
		jobs:   jobs,
		poller: p,
	}
}

func (w *FetchWorker) Run(ctx context.Context) error {
	log.Debugf("fetch worker %s started", w.name)

	for {
		select {
		case <-ctx.Done():
			log.Debugf("fetch worker %s stopped: context canceled", w.name)
			return ctx.Err()
		default:
		}

		job, err := w.jobs.NextJob(ctx)
		if err != nil {
			if errors.Is(err, scheduler.ErrClosed) {
				log.Debugf("scheduler closed, worker %s exiting", w.name)
				return nil
			}
			if errors.Is(err, ctx.Err()) {
				log.Debugf("worker %s exiting due to context cancellation", w.name)
				return err
			}
			return err
		}

		if !w.poller.Poll(ctx, job.Path, w.name) {
			log.WithFields(log.Fields{
				"worker": w.name,
				"path":   job.Path,
			}).Debug("tick skipped: request in flight or path released")
		}
	}
}
