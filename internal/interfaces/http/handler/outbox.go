package handler

import (
	"context"
	"net/http"

	"github.com/bizsuite/backend/internal/application/outbox"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"github.com/bizsuite/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VerificationOutbox is the local list of status calls waiting for the remote store
type VerificationOutbox interface {
	Pending(ctx context.Context) ([]sales.PendingVerification, error)
	Dead(ctx context.Context) ([]sales.PendingVerification, error)
	Drain(ctx context.Context) (*outbox.DrainResult, error)
	Requeue(ctx context.Context, key string) error
}

// ConnectivityReporter reports whether the remote store was last seen reachable
type ConnectivityReporter interface {
	Online() bool
}

// OutboxHandler exposes the pending verification queue
type OutboxHandler struct {
	BaseHandler
	queue  VerificationOutbox
	status ConnectivityReporter
}

// NewOutboxHandler creates a new OutboxHandler. status may be nil when the
// replayer is disabled.
func NewOutboxHandler(queue VerificationOutbox, status ConnectivityReporter) *OutboxHandler {
	return &OutboxHandler{queue: queue, status: status}
}

// RegisterRoutes registers the outbox routes
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/outbox")
	g.GET("", h.List)
	g.POST("/drain", h.Drain)
	g.POST("/dead/:id/:intent/requeue", h.Requeue)
}

// List returns the pending and dead-lettered entries
func (h *OutboxHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	pending, err := h.queue.Pending(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	dead, err := h.queue.Dead(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	online := true
	if h.status != nil {
		online = h.status.Online()
	}
	h.Success(c, OutboxResponse{
		Online:  online,
		Pending: toPendingResponses(pending),
		Dead:    toPendingResponses(dead),
	})
}

// Drain replays every pending entry once and reports the outcome
func (h *OutboxHandler) Drain(c *gin.Context) {
	result, err := h.queue.Drain(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("Outbox drained on request",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("dead", result.Dead),
	)
	h.Success(c, result)
}

// Requeue moves a dead-lettered entry back to the pending list
func (h *OutboxHandler) Requeue(c *gin.Context) {
	saleID, ok := h.ParseID(c)
	if !ok {
		return
	}
	intent := sales.Intent(c.Param("intent"))
	if !intent.IsValid() {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Unknown intent: "+string(intent))
		return
	}
	if err := h.queue.Requeue(c.Request.Context(), sales.PendingKey(saleID, intent)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"key": sales.PendingKey(saleID, intent)})
}
