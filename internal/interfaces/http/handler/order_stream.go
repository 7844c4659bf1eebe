package handler

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	appsync "github.com/pos/backend/internal/application/sync"
	"github.com/pos/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// SSE event names
const (
	EventSnapshot  = "snapshot"
	EventHeartbeat = "heartbeat"
)

const defaultMaxStreamClients = 256

// OrderStreamHandler pushes order snapshots to browsers over Server-Sent Events.
// Every client is a listener on the shared store; a slow client only ever
// sees the newest snapshot.
type OrderStreamHandler struct {
	BaseHandler
	snapshots  OrderSnapshots
	heartbeat  time.Duration
	maxClients int64
	clients    atomic.Int64
	logger     *zap.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewOrderStreamHandler creates a new OrderStreamHandler
func NewOrderStreamHandler(snapshots OrderSnapshots, heartbeat time.Duration, logger *zap.Logger) *OrderStreamHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderStreamHandler{
		snapshots:  snapshots,
		heartbeat:  heartbeat,
		maxClients: defaultMaxStreamClients,
		logger:     logger,
		closing:    make(chan struct{}),
	}
}

// SetMaxClients caps concurrent streams; zero or less means unlimited
func (h *OrderStreamHandler) SetMaxClients(n int) {
	h.maxClients = int64(n)
}

// Close ends every open stream. Streams opened afterwards end after their
// first snapshot.
func (h *OrderStreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// ClientCount returns the number of connected streams
func (h *OrderStreamHandler) ClientCount() int {
	return int(h.clients.Load())
}

type heartbeatEvent struct {
	Timestamp int64 `json:"timestamp"`
}

// Stream sends the current snapshot, then every new one, until the client leaves
// GET /orders/stream
func (h *OrderStreamHandler) Stream(c *gin.Context) {
	if n := h.clients.Add(1); h.maxClients > 0 && n > h.maxClients {
		h.clients.Add(-1)
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeDependency, "Too many live order streams")
		return
	}
	defer h.clients.Add(-1)

	updates := make(chan appsync.Snapshot, 1)
	unsubscribe := h.snapshots.Subscribe(func(s appsync.Snapshot) {
		offerLatest(updates, s)
	})
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Streams are long-lived; the server write timeout must not cut them.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("Write deadline not cleared", zap.Error(err))
	}

	requestID := getRequestID(c)
	h.logger.Info("Order stream connected", zap.String("request_id", requestID))
	defer h.logger.Info("Order stream closed", zap.String("request_id", requestID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	first := true
	c.Stream(func(w io.Writer) bool {
		if first {
			first = false
			c.SSEvent(EventSnapshot, h.snapshots.Snapshot())
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-h.closing:
			return false
		case s := <-updates:
			c.SSEvent(EventSnapshot, s)
			return true
		case t := <-ticker.C:
			c.SSEvent(EventHeartbeat, heartbeatEvent{Timestamp: t.Unix()})
			return true
		}
	})
}

// offerLatest replaces whatever is queued with s. It never blocks.
func offerLatest(ch chan appsync.Snapshot, s appsync.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
