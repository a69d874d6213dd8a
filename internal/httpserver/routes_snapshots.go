package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rin0913/dashpoll/internal/poller"
	"github.com/Rin0913/dashpoll/internal/resource"
)

func (s *Server) listSnapshots(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Views())
}

func (s *Server) getSnapshot(c *gin.Context) {
	v, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v.View())
}

// revalidate schedules an immediate fetch and returns without waiting for
// it. A fetch already in flight absorbs the request.
func (s *Server) revalidate(c *gin.Context) {
	v, ok := s.lookup(c)
	if !ok {
		return
	}
	go v.Revalidate(s.ctx)
	c.JSON(http.StatusAccepted, gin.H{"resource": c.Param("resource")})
}

func (s *Server) lookup(c *gin.Context) (poller.Viewer, bool) {
	kind, err := resource.ParseKind(c.Param("resource"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	v, ok := s.source.Viewer(kind)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not subscribed: " + string(kind)})
		return nil, false
	}
	return v, true
}

func (s *Server) registerSnapshotRoutes(r gin.IRouter) {
	snapshots := r.Group("/snapshots")
	{
		snapshots.GET("", s.listSnapshots)
		snapshots.GET("/:resource", s.getSnapshot)
		snapshots.POST("/:resource/revalidate", s.revalidate)
	}
}
