package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) registerHealthRoutes(r gin.IRouter) {
	r.GET("/health", s.health)
}
