package poller

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rin0913/dashpoll/internal/resource"
)

// State is a consistent copy of a path's polling state.
type State[T any] struct {
	// Data is the last successfully decoded response. It is only meaningful
	// when HasData is true.
	Data    T
	HasData bool
	// Err is the failure of the most recent attempt, nil after a success.
	Err error
	// IsLoading is true until the first attempt resolves.
	IsLoading bool
	UpdatedAt time.Time
}

// View is the untyped projection of a State, shaped for JSON.
type View struct {
	Data      any        `json:"data"`
	Error     string     `json:"error,omitempty"`
	IsLoading bool       `json:"is_loading"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Viewer is implemented by every Handle regardless of its type parameter.
type Viewer interface {
	Path() string
	View() View
	Updates() <-chan struct{}
	Revalidate(ctx context.Context)
	Close()
}

// Handle is one subscription to a path. Dropping it without Close leaks the
// subscription; the path keeps being polled.
type Handle[T any] struct {
	id      string
	reg     *Registry
	e       *entry
	updates chan struct{}
	once    sync.Once
}

// Subscribe registers interest in path, decoding responses as T. The first
// subscriber of a path starts polling it immediately and every interval
// after that; later subscribers share the same loop and cached state.
func Subscribe[T any](r *Registry, path string, interval time.Duration) (*Handle[T], error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	h := &Handle[T]{
		id:      uuid.NewString(),
		reg:     r,
		updates: make(chan struct{}, 1),
	}

	e, err := r.acquire(path, interval, reflect.TypeOf((*T)(nil)).Elem(), decodeAs[T], h.id, h.updates)
	if err != nil {
		return nil, err
	}
	h.e = e
	return h, nil
}

func decodeAs[T any](body []byte) (any, error) {
	v, err := resource.Decode[T](body)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (h *Handle[T]) ID() string {
	return h.id
}

func (h *Handle[T]) Path() string {
	return h.e.path
}

// State returns the current state. Data is decoded for this call alone, so
// callers may modify it without affecting other subscribers.
func (h *Handle[T]) State() State[T] {
	h.reg.mu.Lock()
	s := State[T]{
		HasData:   h.e.hasData,
		Err:       h.e.err,
		IsLoading: h.e.loading,
		UpdatedAt: h.e.updatedAt,
	}
	body := h.e.body
	h.reg.mu.Unlock()

	if s.HasData {
		// body passed validation when it was stored
		if v, err := resource.Decode[T](body); err == nil {
			s.Data = v
		}
	}
	return s
}

func (h *Handle[T]) View() View {
	s := h.State()

	v := View{IsLoading: s.IsLoading}
	if s.HasData {
		v.Data = s.Data
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}

// Updates delivers a signal after every applied poll. Signals coalesce, so
// a slow reader sees the latest State rather than every intermediate one.
// The channel is closed when the handle or the registry is closed.
func (h *Handle[T]) Updates() <-chan struct{} {
	return h.updates
}

// Revalidate fetches the path now. It returns without fetching when a
// request for the path is already in flight.
func (h *Handle[T]) Revalidate(ctx context.Context) {
	h.reg.pollEntry(ctx, h.e, "revalidate")
}

func (h *Handle[T]) Close() {
	h.once.Do(func() {
		h.reg.release(h.e, h.id)
	})
}
