// Package hooks binds each dashboard endpoint to its response type.
package hooks

import (
	"fmt"

	"github.com/Rin0913/dashpoll/internal/config"
	"github.com/Rin0913/dashpoll/internal/poller"
	"github.com/Rin0913/dashpoll/internal/resource"
)

func use[T any](r *poller.Registry, cfg config.Config, kind resource.Kind) (*poller.Handle[T], error) {
	ep := cfg.Endpoint(kind)
	return poller.Subscribe[T](r, ep.Path, ep.Interval)
}

func UseAlerts(r *poller.Registry, cfg config.Config) (*poller.Handle[resource.Alerts], error) {
	return use[resource.Alerts](r, cfg, resource.KindAlerts)
}

func UseHealth(r *poller.Registry, cfg config.Config) (*poller.Handle[resource.HealthResponse], error) {
	return use[resource.HealthResponse](r, cfg, resource.KindHealth)
}

func UsePending(r *poller.Registry, cfg config.Config) (*poller.Handle[resource.PendingActions], error) {
	return use[resource.PendingActions](r, cfg, resource.KindPending)
}

func UseScans(r *poller.Registry, cfg config.Config) (*poller.Handle[resource.ScanResults], error) {
	return use[resource.ScanResults](r, cfg, resource.KindScans)
}

func UseSecurity(r *poller.Registry, cfg config.Config) (*poller.Handle[resource.SecurityResponse], error) {
	return use[resource.SecurityResponse](r, cfg, resource.KindSecurity)
}

func UseStatus(r *poller.Registry, cfg config.Config) (*poller.Handle[resource.StatusResponse], error) {
	return use[resource.StatusResponse](r, cfg, resource.KindStatus)
}

// Use subscribes to kind and returns its untyped handle.
func Use(r *poller.Registry, cfg config.Config, kind resource.Kind) (poller.Viewer, error) {
	switch kind {
	case resource.KindAlerts:
		return viewer[resource.Alerts](UseAlerts(r, cfg))
	case resource.KindHealth:
		return viewer[resource.HealthResponse](UseHealth(r, cfg))
	case resource.KindPending:
		return viewer[resource.PendingActions](UsePending(r, cfg))
	case resource.KindScans:
		return viewer[resource.ScanResults](UseScans(r, cfg))
	case resource.KindSecurity:
		return viewer[resource.SecurityResponse](UseSecurity(r, cfg))
	case resource.KindStatus:
		return viewer[resource.StatusResponse](UseStatus(r, cfg))
	}
	return nil, fmt.Errorf("hooks: unknown resource %q", kind)
}

func viewer[T any](h *poller.Handle[T], err error) (poller.Viewer, error) {
	if err != nil {
		return nil, err
	}
	return h, nil
}
