// Package server exposes the workflow engine over HTTP and WebSocket
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/lisahq/lisaflow/internal/archive"
	"github.com/lisahq/lisaflow/internal/scheduler"
	"github.com/lisahq/lisaflow/internal/util"
	"github.com/lisahq/lisaflow/pkg/api"
	"github.com/lisahq/lisaflow/pkg/log"
)

// Server implements the HTTP API for submitting and controlling workflow
// runs. Node events from every run are fanned out to connected WebSocket
// clients
type Server struct {
	sched    *scheduler.Scheduler
	archiver *archive.Archiver
	sockets  util.Set[*Client]
	mu       sync.Mutex
}

var ErrExecuteRequest = errors.New("invalid execution request")

// NewServer creates a new HTTP API server. The archiver may be nil, in
// which case finished reports are not persisted
func NewServer(sched *scheduler.Scheduler, archiver *archive.Archiver) *Server {
	return &Server{
		sched:    sched,
		archiver: archiver,
		sockets:  util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)

	eng := router.Group("/engine")
	{
		eng.POST("/execute", s.handleExecute)

		eng.GET("/run", s.listRuns)
		eng.POST("/run/:runID/step", s.handleConfirmStep)
		eng.POST("/run/:runID/abort", s.handleAbort)
		eng.GET("/run/:runID/stats", s.handleStats)

		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

// broadcast delivers a node event to every connected WebSocket client
func (s *Server) broadcast(event api.NodeEvent) {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.sockets))
	for client := range s.sockets {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		client.enqueue(event)
	}
}

func (s *Server) addClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(client)
}

func (s *Server) removeClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(client)
}

// CloseWebSockets disconnects every streaming client during shutdown
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.sockets))
	for client := range s.sockets {
		clients = append(clients, client)
	}
	s.sockets = util.Set[*Client]{}
	s.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

func errorJSON(c *gin.Context, status int, err error) {
	slog.Debug("Request failed",
		slog.String("path", c.FullPath()),
		log.Error(err))
	c.JSON(status, api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}
