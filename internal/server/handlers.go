package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/smsguard/internal/insight"
)

type analyzeRequest struct {
	Text       string     `json:"text" binding:"required"`
	Sender     string     `json:"sender"`
	ReceivedAt *time.Time `json:"received_at"`
}

type interactionRequest struct {
	At *time.Time `json:"at"`
}

func (s *Server) analyzeHandler(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	msg := insight.Message{
		Text:   req.Text,
		Sender: req.Sender,
	}
	if req.ReceivedAt != nil {
		msg.ReceivedAt = *req.ReceivedAt
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), msg)
	if err != nil {
		switch {
		case errors.Is(err, insight.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "empty_message",
				"message": "message text must not be empty",
			})
		case errors.Is(err, insight.ErrAnalysisFailed):
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "analysis_failed",
				"message": "message could not be analyzed",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) interactionHandler(c *gin.Context) {
	// An empty body means "now"; a body that is present but unparseable is
	// a client error, not an implicit "now".
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	at := time.Now()
	if req.At != nil {
		at = *req.At
	}
	s.analyzer.RecordInteraction(c.Request.Context(), at)

	c.JSON(http.StatusOK, gin.H{"recorded_at": at})
}

func (s *Server) assessmentsHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer between 1 and 500",
			})
			return
		}
		limit = parsed
	}

	results, err := s.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "failed to list assessments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": results,
		"count":       len(results),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "database unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
