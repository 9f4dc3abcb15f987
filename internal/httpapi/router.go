package httpapi

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vodex/internal/httpmiddleware"
	"vodex/internal/records"
)

// Options configures NewRouter.
type Options struct {
	Log     *slog.Logger
	Limiter httpmiddleware.Limiter
	Health  map[string]HealthChecker
}

// NewRouter wires middleware and every route onto a fresh engine.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(records.JSONFieldName)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(opts.Log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", httpmiddleware.RequestIDHeader},
		ExposeHeaders:   []string{httpmiddleware.RequestIDHeader},
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	if opts.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(opts.Limiter))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", Healthz(opts.Health))
	r.GET("/", h.Root)
	r.GET("/test-db", h.TestDB)

	items := r.Group("/items")
	{
		items.POST("", h.CreateItem)
		items.GET("/filter", h.FilterItems)
		items.GET("/aggregation", h.AggregateItems)
		items.GET("/:id", h.GetItem)
		items.PUT("/:id", h.UpdateItem)
		items.DELETE("/:id", h.DeleteItem)
	}

	clock := r.Group("/clock-in")
	{
		clock.POST("", h.CreateClockIn)
		clock.GET("/filter", h.FilterClockIns)
		clock.GET("/:id", h.GetClockIn)
		clock.PUT("/:id", h.UpdateClockIn)
		clock.DELETE("/:id", h.DeleteClockIn)
	}

	if h.audit != nil {
		r.GET("/audit/events", h.ListAuditEvents)
	}

	return r
}
