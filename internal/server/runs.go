package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lisahq/lisaflow/internal/scheduler"
	"github.com/lisahq/lisaflow/pkg/api"
	"github.com/lisahq/lisaflow/pkg/log"
)

// handleExecute runs a submitted workflow to completion and returns its
// report. The request blocks until the run finishes; clients wanting
// progress subscribe to the WebSocket stream
func (s *Server) handleExecute(c *gin.Context) {
	var req api.ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest,
			fmt.Errorf("%w: %w", ErrExecuteRequest, err))
		return
	}
	req.OnNodeExecution = s.broadcast

	report, err := s.sched.Execute(c.Request.Context(), &req)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}

	if s.archiver != nil {
		if err := s.archiver.Store(c.Request.Context(), report); err != nil {
			slog.Warn("Failed to archive execution report",
				log.RunID(report.RunID),
				log.Error(err))
		}
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) listRuns(c *gin.Context) {
	runs := s.sched.ActiveRuns()
	c.JSON(http.StatusOK, api.RunListResponse{
		Runs:  runs,
		Count: len(runs),
	})
}

// handleConfirmStep advances a step-by-step run by one node
func (s *Server) handleConfirmStep(c *gin.Context) {
	runID := c.Param("runID")
	if err := s.sched.ConfirmNextStep(runID); err != nil {
		errorJSON(c, statusForRunError(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAbort(c *gin.Context) {
	runID := c.Param("runID")
	if err := s.sched.Abort(runID); err != nil {
		errorJSON(c, statusForRunError(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStats(c *gin.Context) {
	runID := c.Param("runID")
	stats, err := s.sched.Stats(runID)
	if err != nil {
		errorJSON(c, statusForRunError(err), err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func statusForRunError(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrNotStepByStep):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
