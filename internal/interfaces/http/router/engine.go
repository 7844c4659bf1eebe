package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Orders  *handler.OrderHandler
	Stream  *handler.OrderStreamHandler
	Menu    *handler.MenuHandler
	Stock   *handler.StockHandler
	Reports *handler.ReportHandler
	System  *handler.SystemHandler
}

// EngineConfig carries what the middleware stack needs
type EngineConfig struct {
	ServiceName    string
	HTTP           config.HTTPConfig
	TracingEnabled bool
	MeterProvider  *telemetry.MeterProvider
	Logger         *zap.Logger
}

// NewEngine builds the gin engine with the middleware stack in order:
// request ID, recovery, tracing, span errors, metrics, request log,
// security headers, CORS, body limit.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
		SkipPaths:   []string{"/health", "/health/ready", "/api/v1/orders/stream"},
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: cfg.MeterProvider,
		Enabled:       cfg.MeterProvider != nil,
	}))
	engine.Use(logger.GinMiddleware(log, "/health", "/health/ready"))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	engine.Use(middleware.CORSWithConfig(cors))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if h.System != nil {
		engine.GET("/health", h.System.Live)
		engine.GET("/health/ready", h.System.Ready)
	}

	Mount(engine, APIVersion, routeGroups(h)...)
	return engine
}

func routeGroups(h Handlers) []*RouteGroup {
	var groups []*RouteGroup

	if h.Orders != nil {
		orders := Group("/orders").
			POST("", h.Orders.Submit).
			GET("", h.Orders.List).
			GET("/pending-count", h.Orders.PendingCount).
			GET("/live", h.Orders.Live)
		if h.Stream != nil {
			orders.GET("/stream", h.Stream.Stream)
		}
		orders.GET("/:id", h.Orders.Get).
			POST("/:id/place", h.Orders.Place).
			PUT("/:id/status", h.Orders.UpdateStatus).
			DELETE("/:id", h.Orders.Delete)
		groups = append(groups, orders)
	}
	if h.Menu != nil {
		groups = append(groups, Group("/menu-items").GET("", h.Menu.List))
	}
	if h.Stock != nil {
		groups = append(groups, Group("/stock").GET("", h.Stock.Get))
	}
	if h.Reports != nil {
		groups = append(groups,
			Group("/reports").
				GET("/sales", h.Reports.Sales).
				GET("/sales/export", h.Reports.Export).
				GET("/daily-summary", h.Reports.DailySummary),
			Group("/dashboard").GET("", h.Reports.Dashboard),
		)
	}
	if h.System != nil {
		groups = append(groups, Group("/system").
			GET("/info", h.System.GetSystemInfo).
			GET("/ping", h.System.Ping))
	}
	return groups
}
