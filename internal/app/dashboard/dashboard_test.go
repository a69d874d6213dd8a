package dashboard

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rin0913/dashpoll/internal/config"
	"github.com/Rin0913/dashpoll/internal/resource"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/alerts":
			_, _ = w.Write([]byte(`[{"id":"a1","severity":"crit"},{"id":"a2","severity":"info"}]`))
		case "/api/security":
			_, _ = w.Write([]byte(`{"score":91}`))
		case "/api/health":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.Resources = map[string]config.ResourceEntry{
		"alerts":   {IntervalMS: 50},
		"security": {IntervalMS: 50},
		"health":   {IntervalMS: 50},
	}
	return cfg
}

func runWatch(t *testing.T, cfg config.Config, until func(string) bool, kinds ...resource.Kind) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	errCh := make(chan error, 1)
	go func() { errCh <- Watch(ctx, cfg, out, kinds...) }()

	require.Eventually(t, func() bool { return until(out.String()) }, 3*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("watch did not exit after cancel")
	}
	return out.String()
}

func TestWatchPrintsUpdates(t *testing.T) {
	srv := newBackend(t)
	cfg := testConfig(srv.URL)

	out := runWatch(t, cfg, func(s string) bool {
		return strings.Contains(s, "alerts") && strings.Contains(s, "security") && strings.Contains(s, "health")
	}, resource.KindAlerts, resource.KindSecurity, resource.KindHealth)

	assert.Contains(t, out, "2 alerts (1 critical, 0 warning)")
	assert.Contains(t, out, "score 91")
	assert.Contains(t, out, "health   error:")
	assert.Contains(t, out, "503")
}

func TestWatchStoresSnapshotsAndLastReadsThem(t *testing.T) {
	mr := miniredis.RunT(t)
	srv := newBackend(t)

	cfg := testConfig(srv.URL)
	cfg.Redis = config.RedisConfig{Enabled: true, Addr: mr.Addr()}

	runWatch(t, cfg, func(string) bool {
		return mr.Exists("snapshot:/api/security")
	}, resource.KindSecurity)

	snap, err := Last(context.Background(), cfg, resource.KindSecurity)
	require.NoError(t, err)
	assert.Equal(t, "/api/security", snap.Path)
	assert.JSONEq(t, `{"score":91}`, string(snap.Body))
	assert.False(t, snap.FetchedAt.IsZero())

	_, err = Last(context.Background(), cfg, resource.KindPending)
	assert.Error(t, err)

	paths, err := Stored(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/security"}, paths)
}

func TestWatchWithoutRedisStillPolls(t *testing.T) {
	srv := newBackend(t)
	cfg := testConfig(srv.URL)
	cfg.Redis = config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}

	out := runWatch(t, cfg, func(s string) bool {
		return strings.Contains(s, "score 91")
	}, resource.KindSecurity)
	assert.Contains(t, out, "security")
}

func TestLastRequiresStore(t *testing.T) {
	_, err := Last(context.Background(), config.Default(), resource.KindAlerts)
	assert.ErrorIs(t, err, ErrNoStore)
}
