// Package poller keeps one polling loop per endpoint path and fans its
// snapshots out to any number of subscribers.
//
// Subscribers of the same path share a single registry entry: one scheduler
// job, at most one request in flight, one cached {data, error, loading}
// state. The entry lives while at least one handle is open; closing the last
// handle removes the timer and aborts the request in flight.
package poller

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Rin0913/dashpoll/internal/scheduler"
	"github.com/Rin0913/dashpoll/internal/snapshot"
	"github.com/Rin0913/dashpoll/internal/worker"
)

// Fetcher performs the GET for a path. *apiclient.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

type decodeFunc func([]byte) (any, error)

type entry struct {
	path     string
	interval time.Duration
	typ      reflect.Type
	decode   decodeFunc

	ctx    context.Context
	cancel context.CancelFunc

	subs     map[string]chan struct{}
	inFlight bool
	closed   bool

	// body is the last raw response that decoded cleanly. It is never
	// mutated, so every State decodes its own copy of Data from it.
	body      []byte
	hasData   bool
	err       error
	loading   bool
	updatedAt time.Time
}

type Registry struct {
	fetcher Fetcher
	sched   *scheduler.Scheduler
	store   snapshot.Repository
	workers int
	backoff time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	manager *worker.Manager
	stopped bool

	fetches sync.WaitGroup
}

type Option func(*Registry)

// WithWorkers sets how many fetch workers drain the scheduler. Workers only
// dispatch: each admitted fetch runs on its own goroutine, so a slow path
// never delays another one.
func WithWorkers(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithStore records every successfully decoded body in repo.
func WithStore(repo snapshot.Repository) Option {
	return func(r *Registry) {
		r.store = repo
	}
}

func NewRegistry(f Fetcher, opts ...Option) *Registry {
	r := &Registry{
		fetcher: f,
		sched:   scheduler.New(),
		workers: 2,
		backoff: 2 * time.Second,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the fetch workers. Subscriptions made before Start are
// polled as soon as the workers run.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	if r.manager != nil || r.stopped {
		r.mu.Unlock()
		return
	}
	r.manager = worker.NewManager(r.workers, r.backoff, func(id int) worker.Worker {
		return worker.NewFetchWorker(fmt.Sprintf("fetch#%d", id), r.sched, r)
	})
	m := r.manager
	r.mu.Unlock()

	m.Start(ctx)
}

// Stop releases every entry, closes all update channels and waits for the
// workers to exit. The registry cannot be restarted.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	for path, e := range r.entries {
		r.teardownLocked(e)
		delete(r.entries, path)
	}
	m := r.manager
	r.mu.Unlock()

	r.sched.Close()
	if m != nil {
		m.Stop()
	}
	r.fetches.Wait()
}

// Refs reports how many open handles share path.
func (r *Registry) Refs(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[path]; ok {
		return len(e.subs)
	}
	return 0
}

// Paths lists the paths currently being polled.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for p := range r.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) acquire(path string, interval time.Duration, typ reflect.Type, decode decodeFunc, id string, ch chan struct{}) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil, ErrRegistryStopped
	}

	e, ok := r.entries[path]
	if ok {
		if e.typ != typ {
			return nil, fmt.Errorf("%w: %s is %v, not %v", ErrTypeMismatch, path, e.typ, typ)
		}
		if e.interval != interval {
			log.WithFields(log.Fields{
				"path":      path,
				"interval":  e.interval,
				"requested": interval,
			}).Warn("path already polled at another interval, keeping the first one")
		}
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		e = &entry{
			path:     path,
			interval: interval,
			typ:      typ,
			decode:   decode,
			ctx:      ctx,
			cancel:   cancel,
			subs:     make(map[string]chan struct{}),
			loading:  true,
		}
		r.entries[path] = e
		r.sched.Add(path, interval)
		log.WithFields(log.Fields{"path": path, "interval": interval}).Debug("polling started")
	}

	e.subs[id] = ch
	return e, nil
}

func (r *Registry) release(e *entry, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.closed {
		return
	}
	ch, ok := e.subs[id]
	if !ok {
		return
	}
	delete(e.subs, id)
	close(ch)

	if len(e.subs) > 0 {
		return
	}

	r.teardownLocked(e)
	if r.entries[e.path] == e {
		delete(r.entries, e.path)
	}
	r.sched.Remove(e.path)
	log.WithField("path", e.path).Debug("polling stopped: no subscribers left")
}

func (r *Registry) teardownLocked(e *entry) {
	e.closed = true
	e.cancel()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}

// Poll starts one cycle for path on behalf of runner and returns without
// waiting for the response. It is skipped when the path has no subscribers
// or a request for it is already in flight.
func (r *Registry) Poll(ctx context.Context, path, runner string) bool {
	r.mu.Lock()
	e := r.entries[path]
	r.mu.Unlock()

	if e == nil || !r.admit(e) {
		return false
	}
	go r.fetch(ctx, e, runner)
	return true
}

// pollEntry runs one cycle for e and waits for it.
func (r *Registry) pollEntry(ctx context.Context, e *entry, runner string) bool {
	if !r.admit(e) {
		return false
	}
	r.fetch(ctx, e, runner)
	return true
}

// admit marks e in flight. A fetch must follow every successful admit.
func (r *Registry) admit(e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.closed || e.inFlight {
		return false
	}
	e.inFlight = true
	r.fetches.Add(1)
	return true
}

func (r *Registry) fetch(ctx context.Context, e *entry, runner string) {
	defer r.fetches.Done()

	reqCtx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var perr *Error
	body, err := r.fetcher.Get(reqCtx, e.path)
	if err != nil {
		perr = fetchError(e.path, err)
	} else if _, err = e.decode(body); err != nil {
		perr = decodeError(e.path, err)
	}

	r.mu.Lock()
	e.inFlight = false
	if e.closed || (perr != nil && ctx.Err() != nil && errors.Is(perr, context.Canceled)) {
		r.mu.Unlock()
		return
	}

	e.loading = false
	e.updatedAt = time.Now()
	if perr != nil {
		e.err = perr
	} else {
		e.body = body
		e.hasData = true
		e.err = nil
	}
	for _, ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	interval, fetchedAt := e.interval, e.updatedAt
	r.mu.Unlock()

	if perr != nil {
		log.WithFields(log.Fields{
			"runner": runner,
			"path":   e.path,
			"kind":   perr.Kind,
		}).Warnf("poll failed: %v", perr.Err)
		return
	}

	log.WithFields(log.Fields{"runner": runner, "path": e.path}).Debug("snapshot updated")

	if r.store != nil {
		snap := &snapshot.Snapshot{
			Path:      e.path,
			Body:      body,
			FetchedAt: fetchedAt,
			Runner:    runner,
		}
		if err := r.store.Save(ctx, snap, 3*interval); err != nil {
			log.WithField("path", e.path).Warnf("failed to save snapshot: %v", err)
		}
	}
}
