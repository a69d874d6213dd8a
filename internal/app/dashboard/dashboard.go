// Package dashboard wires the API client, the polling registry and the
// optional snapshot store into the runnable commands.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Rin0913/dashpoll/internal/apiclient"
	"github.com/Rin0913/dashpoll/internal/config"
	"github.com/Rin0913/dashpoll/internal/hooks"
	"github.com/Rin0913/dashpoll/internal/httpserver"
	"github.com/Rin0913/dashpoll/internal/poller"
	"github.com/Rin0913/dashpoll/internal/redisclient"
	"github.com/Rin0913/dashpoll/internal/resource"
	"github.com/Rin0913/dashpoll/internal/snapshot"
)

// ErrNoStore is returned by Last when redis is not configured.
var ErrNoStore = errors.New("dashboard: snapshot store is not enabled")

type runtime struct {
	registry *poller.Registry
	redis    *redis.Client
}

func start(ctx context.Context, cfg config.Config) *runtime {
	client := apiclient.NewClient(cfg.BaseURL,
		apiclient.WithToken(cfg.Token),
		apiclient.WithTimeout(cfg.Timeout()),
	)

	rt := &runtime{}
	opts := []poller.Option{poller.WithWorkers(cfg.Workers)}

	if cfg.Redis.Enabled {
		rc := redisclient.NewClient(cfg.Redis)
		if err := redisclient.Ping(ctx, rc); err != nil {
			log.WithField("addr", cfg.Redis.Addr).Warnf("redis unavailable, snapshots will not be stored: %v", err)
			_ = rc.Close()
		} else {
			rt.redis = rc
			opts = append(opts, poller.WithStore(snapshot.NewRedisRepository(rc)))
		}
	}

	rt.registry = poller.NewRegistry(client, opts...)
	rt.registry.Start(ctx)
	return rt
}

func (rt *runtime) stop() {
	rt.registry.Stop()
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
}

// Run serves the relay on cfg.Listen until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	rt := start(ctx, cfg)
	defer rt.stop()

	d, err := hooks.NewDashboard(rt.registry, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	srv := httpserver.NewServer(d)
	errCh, err := srv.Start(cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)

	case err := <-errCh:
		return err
	}
}

// Watch writes one line per resource update to out until ctx is cancelled.
func Watch(ctx context.Context, cfg config.Config, out io.Writer, kinds ...resource.Kind) error {
	rt := start(ctx, cfg)
	defer rt.stop()

	d, err := hooks.NewDashboard(rt.registry, cfg, kinds...)
	if err != nil {
		return err
	}
	defer d.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case kind, ok := <-d.Updates():
			if !ok {
				return nil
			}
			v, _ := d.Viewer(kind)
			fmt.Fprintln(out, describe(kind, v))
		}
	}
}

func describe(kind resource.Kind, v poller.Viewer) string {
	view := v.View()
	switch {
	case view.Error != "" && view.Data != nil:
		return fmt.Sprintf("%-8s stale: %s", kind, view.Error)
	case view.Error != "":
		return fmt.Sprintf("%-8s error: %s", kind, view.Error)
	}

	switch data := view.Data.(type) {
	case resource.Alerts:
		return fmt.Sprintf("%-8s %d alerts (%d critical, %d warning)", kind, len(data),
			data.CountBySeverity(resource.SeverityCritical), data.CountBySeverity(resource.SeverityWarning))
	case resource.HealthResponse:
		if !data.Healthy() {
			return fmt.Sprintf("%-8s degraded (%s)", kind, data.Status)
		}
		return fmt.Sprintf("%-8s %s", kind, data.Status)
	case resource.PendingActions:
		return fmt.Sprintf("%-8s %d pending", kind, len(data))
	case resource.ScanResults:
		return fmt.Sprintf("%-8s %d results, %d failed", kind, len(data), len(data.Failed()))
	case resource.SecurityResponse:
		return fmt.Sprintf("%-8s score %d", kind, data.Score)
	case resource.StatusResponse:
		if age, ok := data.LastScanAge(time.Now()); ok {
			return fmt.Sprintf("%-8s %d alerts, last scan %dm ago", kind, data.AlertsTotal, age)
		}
		return fmt.Sprintf("%-8s %d alerts, never scanned", kind, data.AlertsTotal)
	}
	return fmt.Sprintf("%-8s ok", kind)
}

func openStore(cfg config.Config) (*snapshot.RedisRepository, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, nil, ErrNoStore
	}
	rc := redisclient.NewClient(cfg.Redis)
	return snapshot.NewRedisRepository(rc), func() { _ = rc.Close() }, nil
}

// Stored lists the paths that currently have a snapshot.
func Stored(ctx context.Context, cfg config.Config) ([]string, error) {
	repo, closeFn, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return repo.List(ctx)
}

// Last reads the stored snapshot of kind.
func Last(ctx context.Context, cfg config.Config, kind resource.Kind) (*snapshot.Snapshot, error) {
	repo, closeFn, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	snap, err := repo.Get(ctx, cfg.Endpoint(kind).Path)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("dashboard: no snapshot stored for %s", kind)
	}
	return snap, nil
}
