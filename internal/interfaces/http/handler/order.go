package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apporder "github.com/pos/backend/internal/application/order"
	appsync "github.com/pos/backend/internal/application/sync"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/interfaces/http/middleware"
)

const (
	defaultOrderListLimit = 100
	maxOrderListLimit     = 500
)

// OrderSubmitter stores till carts
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, cmd apporder.SubmitOrderCommand) (*apporder.SubmitOrderResult, error)
}

// OrderQueries reads orders from the store
type OrderQueries interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error)
	ListOrders(ctx context.Context, filter apporder.OrderFilter) ([]apporder.OrderResponse, error)
	CountPending(ctx context.Context) (int64, error)
}

// OrderMutations changes orders through the optimistic path
type OrderMutations interface {
	MarkPlaced(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, rawStatus string) (*apporder.OrderResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderSnapshots exposes the synchronized order list
type OrderSnapshots interface {
	Snapshot() appsync.Snapshot
	Subscribe(l appsync.Listener) (unsubscribe func())
}

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	BaseHandler
	submitter OrderSubmitter
	queries   OrderQueries
	mutations OrderMutations
	snapshots OrderSnapshots
	loc       *time.Location
}

// NewOrderHandler creates a new OrderHandler. Dates in list filters are read in loc.
func NewOrderHandler(submitter OrderSubmitter, queries OrderQueries, mutations OrderMutations, snapshots OrderSnapshots, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{
		submitter: submitter,
		queries:   queries,
		mutations: mutations,
		snapshots: snapshots,
		loc:       loc,
	}
}

// UpdateStatusRequest is the body of PUT /orders/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PendingCountResponse is the body of GET /orders/pending-count
type PendingCountResponse struct {
	Pending int64 `json:"pending"`
}

// Submit stores a till cart as a new PENDING order
// POST /orders
func (h *OrderHandler) Submit(c *gin.Context) {
	var cmd apporder.SubmitOrderCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.submitter.SubmitOrder(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List returns orders newest first
// GET /orders?status=PENDING&from=2026-01-20&to=2026-01-21&limit=50
func (h *OrderHandler) List(c *gin.Context) {
	var filter apporder.OrderFilter

	if raw := c.Query("status"); raw != "" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		filter.Status = &status
	}

	from, ok := h.parseDate(c, "from", h.loc)
	if !ok {
		return
	}
	if !from.IsZero() {
		filter.From = &from
	}
	to, ok := h.parseDate(c, "to", h.loc)
	if !ok {
		return
	}
	if !to.IsZero() {
		// inclusive of the whole day
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &end
	}

	filter.Limit = defaultOrderListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxOrderListLimit {
			h.BadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxOrderListLimit))
			return
		}
		filter.Limit = n
	}

	orders, err := h.queries.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, orders, len(orders))
}

// Get returns one order with its items
// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	resp, err := h.queries.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PendingCount returns the number of PENDING orders
// GET /orders/pending-count
func (h *OrderHandler) PendingCount(c *gin.Context) {
	n, err := h.queries.CountPending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PendingCountResponse{Pending: n})
}

// Live returns the synchronized order list without touching the store
// GET /orders/live
func (h *OrderHandler) Live(c *gin.Context) {
	h.Success(c, h.snapshots.Snapshot())
}

// Place marks a PENDING order as PLACED
// POST /orders/:id/place
func (h *OrderHandler) Place(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	resp, err := h.mutations.MarkPlaced(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateStatus moves an order to the named status
// PUT /orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	resp, err := h.mutations.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes an order and its items
// DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.mutations.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
