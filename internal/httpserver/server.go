// Package httpserver relays the dashboard snapshots over a small JSON API.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Rin0913/dashpoll/internal/poller"
	"github.com/Rin0913/dashpoll/internal/resource"
)

// Source is the set of subscriptions served by the relay. *hooks.Dashboard
// implements it.
type Source interface {
	Views() map[resource.Kind]poller.View
	Viewer(kind resource.Kind) (poller.Viewer, bool)
}

type Server struct {
	source     Source
	router     *gin.Engine
	httpServer *http.Server
	listener   net.Listener

	// ctx bounds the revalidations started by POST requests.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(src Source) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		source: src,
		router: gin.New(),
		ctx:    ctx,
		cancel: cancel,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Start binds addr and serves in the background. Serve errors other than a
// normal shutdown are delivered on the returned channel.
func (s *Server) Start(addr string) (<-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.router,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("relay listening on %s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh, nil
}

// Addr is the bound address, useful when Start was given port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
