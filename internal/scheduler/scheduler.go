package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("scheduler closed")

// PollJob is the timer of a single path. The scheduler holds at most one
// job per path.
type PollJob struct {
	Path     string
	Interval time.Duration
	nextRun  time.Time
	index    int
}

// NextRun reports when the job was due.
func (j *PollJob) NextRun() time.Time {
	return j.nextRun
}

type Scheduler struct {
	mu        sync.Mutex
	jobs      jobHeap
	byPath    map[string]*PollJob
	closed    bool
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func New() *Scheduler {
	s := &Scheduler{
		byPath: make(map[string]*PollJob),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	heap.Init(&s.jobs)
	return s
}

// Add schedules path to run immediately and then every interval. It returns
// false when the path is already scheduled or the scheduler is closed.
func (s *Scheduler) Add(path string, interval time.Duration) bool {
	return s.addWithNextRun(path, interval, time.Now())
}

func (s *Scheduler) addWithNextRun(path string, interval time.Duration, t time.Time) bool {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.byPath[path]; ok {
		s.mu.Unlock()
		return false
	}
	job := &PollJob{
		Path:     path,
		Interval: interval,
		nextRun:  t,
	}
	heap.Push(&s.jobs, job)
	s.byPath[path] = job
	s.mu.Unlock()

	s.signal()
	return true
}

// Remove drops the timer of path. Jobs already handed to a worker are not
// recalled.
func (s *Scheduler) Remove(path string) bool {
	s.mu.Lock()
	job, ok := s.byPath[path]
	if ok {
		heap.Remove(&s.jobs, job.index)
		delete(s.byPath, path)
	}
	s.mu.Unlock()

	if ok {
		s.signal()
	}
	return ok
}

func (s *Scheduler) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byPath[path]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Close wakes every waiter with ErrClosed.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// NextJob blocks until a job is due and returns it.
func (s *Scheduler) NextJob(ctx context.Context) (*PollJob, error) {
	for {
		job, wait, err := s.take(ctx)
		if err != nil {
			return nil, err
		}
		if job != nil {
			// let another waiter pick up the new head
			s.signal()
			return job, nil
		}

		var timer *time.Timer
		var fire <-chan time.Time
		if wait >= 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return nil, ctx.Err()
		case <-s.done:
			stopTimer(timer)
			return nil, ErrClosed
		case <-s.wake:
		case <-fire:
		}
		stopTimer(timer)
	}
}

// take pops the head when it is due. Otherwise it returns how long until the
// head is due, or -1 when there is nothing scheduled.
func (s *Scheduler) take(ctx context.Context) (*PollJob, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return nil, 0, ctx.Err()
	}
	if s.closed {
		return nil, 0, ErrClosed
	}
	if len(s.jobs) == 0 {
		return nil, -1, nil
	}

	top := s.jobs[0]
	now := time.Now()
	if top.nextRun.After(now) {
		return nil, top.nextRun.Sub(now), nil
	}

	job := heap.Pop(&s.jobs).(*PollJob)

	next := job.nextRun.Add(job.Interval)
	if next.Before(now) {
		next = now.Add(job.Interval)
	}

	nextJob := *job
	nextJob.nextRun = next
	heap.Push(&s.jobs, &nextJob)
	s.byPath[job.Path] = &nextJob

	return job, 0, nil
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
