package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"github.com/bizsuite/backend/internal/infrastructure/refresh"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefreshSubscriber hands out refresh event subscriptions
type RefreshSubscriber interface {
	Subscribe() (<-chan refresh.Event, func())
	SubscriberCount() int
}

// SSEMessage is one server-sent event
type SSEMessage struct {
	Event string
	ID    string
	Data  string
}

// EventsHandler streams refresh notifications to UI clients over SSE
type EventsHandler struct {
	BaseHandler
	subscriber RefreshSubscriber
	heartbeat  time.Duration
	maxClients int
}

// EventsOption configures an EventsHandler
type EventsOption func(*EventsHandler)

// WithHeartbeat sets the keepalive interval
func WithHeartbeat(interval time.Duration) EventsOption {
	return func(h *EventsHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithMaxClients caps concurrent streams; 0 means unlimited
func WithMaxClients(max int) EventsOption {
	return func(h *EventsHandler) {
		h.maxClients = max
	}
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(subscriber RefreshSubscriber, opts ...EventsOption) *EventsHandler {
	h := &EventsHandler{
		subscriber: subscriber,
		heartbeat:  15 * time.Second,
		maxClients: 1000,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the event stream route
func (h *EventsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.Stream)
}

// Stream sends "sale_patched" events carrying the new sale state and
// "reload" events asking for a full refresh. A "heartbeat" keeps idle
// connections open.
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.subscriber.SubscriberCount() >= h.maxClients {
		h.Error(c, http.StatusServiceUnavailable, "ERR_MAX_CONNECTIONS", "Maximum number of event streams reached")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// streams outlive the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	events, cancel := h.subscriber.Subscribe()
	defer cancel()

	clientID := uuid.NewString()
	log := logger.GetGinLogger(c).With(zap.String("client_id", clientID))
	log.Debug("Event stream opened")

	c.Status(http.StatusOK)
	writeEvent(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"client_id":%q,"timestamp":%d}`, clientID, time.Now().Unix()),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			log.Debug("Event stream closed by client")
			return
		case <-ticker.C:
			writeEvent(c.Writer, SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
			c.Writer.Flush()
		case ev, ok := <-events:
			if !ok {
				log.Debug("Event stream closed by server")
				return
			}
			msg, err := toSSEMessage(ev)
			if err != nil {
				log.Error("Failed to encode refresh event", zap.Error(err))
				continue
			}
			writeEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

func toSSEMessage(ev refresh.Event) (SSEMessage, error) {
	msg := SSEMessage{
		Event: string(ev.Kind),
		ID:    strconv.FormatInt(ev.At.UnixNano(), 10),
	}
	var payload any = gin.H{"at": ev.At}
	if ev.Kind == refresh.KindSalePatched && ev.Sale != nil {
		payload = toSaleResponse(ev.Sale)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return SSEMessage{}, err
	}
	msg.Data = string(data)
	return msg, nil
}

// writeEvent writes an SSE event to the response writer
func writeEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

