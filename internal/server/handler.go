// Package server exposes the intake service over HTTP
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/intake"
	"github.com/mbpp-digital/intake/internal/models"
	"github.com/mbpp-digital/intake/internal/ticket"
)

// Handler serves the intake API
type Handler struct {
	processor *intake.Processor
	tickets   *ticket.Store
	logger    *zap.Logger
}

// NewHandler creates an API handler
func NewHandler(processor *intake.Processor, tickets *ticket.Store, logger *zap.Logger) *Handler {
	return &Handler{
		processor: processor,
		tickets:   tickets,
		logger:    logger,
	}
}

// Register mounts the API routes
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api/v1")
	{
		api.POST("/turns", h.postTurn)
		// ticket numbers contain slashes, so the route is a wildcard
		api.GET("/tickets/*number", h.getTicket)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) postTurn(c *gin.Context) {
	var req models.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.Text == "" && len(req.Attachment) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "turn must carry text or an attachment"})
		return
	}

	resp, err := h.processor.ProcessTurn(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Turn processing failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process turn"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getTicket(c *gin.Context) {
	number := strings.TrimPrefix(c.Param("number"), "/")

	t, err := h.tickets.GetByNumber(number)
	if errors.Is(err, ticket.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	if err != nil {
		h.logger.Error("Ticket lookup failed", zap.String("number", number), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ticket"})
		return
	}

	c.JSON(http.StatusOK, t)
}
