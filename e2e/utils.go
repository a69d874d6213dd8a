package e2e

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Rin0913/dashpoll/internal/app/dashboard"
	"github.com/Rin0913/dashpoll/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func startDashboard(t *testing.T, cfg config.Config) (context.CancelFunc, chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() {
		errCh <- dashboard.Run(ctx, cfg)
	}()

	return cancel, errCh
}

func waitForShutdown(t *testing.T, errCh chan error) {
	t.Helper()

	select {
	case <-time.After(5 * time.Second):
		t.Fatalf("Run(ctx) did not exit after cancel")
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run(ctx) returned error: %v", err)
		}
	}
}

func waitForHealthReady(t *testing.T, client *http.Client, baseURL string) *http.Response {
	t.Helper()

	var resp *http.Response
	var err error

	for i := 0; i < 10; i++ {
		resp, err = client.Get(baseURL + "/health")
		if err == nil {
			return resp
		}
		time.Sleep(200 * time.Millisecond)
	}

	t.Fatalf("failed to call /health: %v", err)
	return nil
}
