package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	apporder "github.com/pos/backend/internal/application/order"
	appsync "github.com/pos/backend/internal/application/sync"
	"github.com/pos/backend/internal/domain/menu"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
)

type stubOrders struct {
	pending int64
}

func (s *stubOrders) SubmitOrder(context.Context, apporder.SubmitOrderCommand) (*apporder.SubmitOrderResult, error) {
	return &apporder.SubmitOrderResult{OrderID: uuid.New(), OrderNumber: "ORD-1"}, nil
}

func (s *stubOrders) GetOrder(_ context.Context, id uuid.UUID) (*apporder.OrderResponse, error) {
	return nil, shared.ErrNotFound
}

func (s *stubOrders) ListOrders(context.Context, apporder.OrderFilter) ([]apporder.OrderResponse, error) {
	return []apporder.OrderResponse{}, nil
}

func (s *stubOrders) CountPending(context.Context) (int64, error) {
	return s.pending, nil
}

func (s *stubOrders) MarkPlaced(_ context.Context, id uuid.UUID) (*apporder.OrderResponse, error) {
	return &apporder.OrderResponse{ID: id, Status: "PLACED"}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, id uuid.UUID, _ string) (*apporder.OrderResponse, error) {
	return &apporder.OrderResponse{ID: id, Status: "PLACED"}, nil
}

func (s *stubOrders) Delete(context.Context, uuid.UUID) error {
	return nil
}

func (s *stubOrders) Snapshot() appsync.Snapshot {
	return appsync.Snapshot{Version: 7}
}

func (s *stubOrders) Subscribe(appsync.Listener) func() {
	return func() {}
}

type stubMenu struct{}

func (stubMenu) List(context.Context, bool) ([]menu.Item, error) {
	return []menu.Item{{ID: uuid.New(), Name: "Idli", Enabled: true}}, nil
}

func newTestEngine(cfg EngineConfig) http.Handler {
	orders := &stubOrders{pending: 3}
	system := handler.NewSystemHandler("pos-backend", "test")
	system.AddCheck("database", func(context.Context) error { return errors.New("down") })

	return NewEngine(cfg, Handlers{
		Orders: handler.NewOrderHandler(orders, orders, orders, orders, time.UTC),
		Stream: handler.NewOrderStreamHandler(orders, time.Minute, nil),
		Menu:   handler.NewMenuHandler(stubMenu{}),
		System: system,
	})
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewEngine_Routes(t *testing.T) {
	engine := newTestEngine(EngineConfig{ServiceName: "pos-backend"})
	id := uuid.NewString()

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/system/ping", "", http.StatusOK},
		{http.MethodGet, "/api/v1/system/info", "", http.StatusOK},
		{http.MethodPost, "/api/v1/orders", `{"lines":[{"name":"Idli","unit_price":"30","quantity":1}],"payment_method":"CASH"}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/orders", "", http.StatusOK},
		{http.MethodGet, "/api/v1/orders/pending-count", "", http.StatusOK},
		{http.MethodGet, "/api/v1/orders/live", "", http.StatusOK},
		{http.MethodGet, "/api/v1/orders/" + id, "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/orders/" + id + "/place", "", http.StatusOK},
		{http.MethodPut, "/api/v1/orders/" + id + "/status", `{"status":"PLACED"}`, http.StatusOK},
		{http.MethodDelete, "/api/v1/orders/" + id, "", http.StatusNoContent},
		{http.MethodGet, "/api/v1/menu-items", "", http.StatusOK},
		{http.MethodGet, "/api/v1/stock", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestNewEngine_Middleware(t *testing.T) {
	engine := newTestEngine(EngineConfig{
		ServiceName: "pos-backend",
		HTTP: config.HTTPConfig{
			MaxBodySize:      64,
			CORSAllowOrigins: []string{"http://till.local"},
		},
	})

	t.Run("request id and security headers", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/orders/pending-count", "")
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, w.Body.String(), `"pending":3`)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
		req.Header.Set("Origin", "http://till.local")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://till.local", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("body limit", func(t *testing.T) {
		body := `{"lines":[{"name":"` + strings.Repeat("x", 200) + `","unit_price":"1","quantity":1}],"payment_method":"CASH"}`
		w := serve(engine, http.MethodPost, "/api/v1/orders", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}
