package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lisahq/lisaflow"
	"github.com/lisahq/lisaflow/pkg/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: lisaflow.Name,
		Version: lisaflow.Version,
		Status:  "healthy",
	})
}
