package hooks

import (
	"sync"

	"github.com/Rin0913/dashpoll/internal/config"
	"github.com/Rin0913/dashpoll/internal/poller"
	"github.com/Rin0913/dashpoll/internal/resource"
)

// Dashboard holds one subscription per resource and merges their update
// signals into a single channel of kinds.
type Dashboard struct {
	kinds   []resource.Kind
	viewers map[resource.Kind]poller.Viewer
	updates chan resource.Kind

	wg   sync.WaitGroup
	once sync.Once
}

// NewDashboard subscribes to kinds, or to every resource when none are given.
func NewDashboard(r *poller.Registry, cfg config.Config, kinds ...resource.Kind) (*Dashboard, error) {
	if len(kinds) == 0 {
		kinds = resource.Kinds()
	}

	d := &Dashboard{
		viewers: make(map[resource.Kind]poller.Viewer, len(kinds)),
		updates: make(chan resource.Kind, 64),
	}
	for _, k := range kinds {
		if _, ok := d.viewers[k]; ok {
			continue
		}
		v, err := Use(r, cfg, k)
		if err != nil {
			for _, opened := range d.viewers {
				opened.Close()
			}
			return nil, err
		}
		d.kinds = append(d.kinds, k)
		d.viewers[k] = v
	}

	for _, k := range d.kinds {
		d.wg.Add(1)
		go d.forward(k, d.viewers[k])
	}
	go func() {
		d.wg.Wait()
		close(d.updates)
	}()

	return d, nil
}

func (d *Dashboard) forward(kind resource.Kind, v poller.Viewer) {
	defer d.wg.Done()
	for range v.Updates() {
		select {
		case d.updates <- kind:
		default:
		}
	}
}

func (d *Dashboard) Kinds() []resource.Kind {
	return append([]resource.Kind(nil), d.kinds...)
}

func (d *Dashboard) Viewer(kind resource.Kind) (poller.Viewer, bool) {
	v, ok := d.viewers[kind]
	return v, ok
}

// Views returns the current state of every subscribed resource.
func (d *Dashboard) Views() map[resource.Kind]poller.View {
	out := make(map[resource.Kind]poller.View, len(d.viewers))
	for k, v := range d.viewers {
		out[k] = v.View()
	}
	return out
}

// Updates yields the kind of every resource that changed. It is closed once
// every subscription is closed.
func (d *Dashboard) Updates() <-chan resource.Kind {
	return d.updates
}

func (d *Dashboard) Close() {
	d.once.Do(func() {
		for _, v := range d.viewers {
			v.Close()
		}
	})
}
