package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/ashwini-cargo/internal/async"
	"github.com/joseph-ayodele/ashwini-cargo/internal/export"
	"github.com/joseph-ayodele/ashwini-cargo/internal/metrics"
	"github.com/joseph-ayodele/ashwini-cargo/internal/numbering"
	"github.com/joseph-ayodele/ashwini-cargo/internal/pipeline"
	"github.com/joseph-ayodele/ashwini-cargo/internal/repository"
)

// Deps are the services the HTTP API fronts. Queue may be nil, in which
// case asynchronous scans are refused.
type Deps struct {
	Generator      *numbering.Generator
	Store          numbering.CounterStore
	Pipeline       *pipeline.ScanPipeline
	Queue          async.Queue
	Scans          repository.ScanRepository
	Export         *export.Service
	Location       *time.Location
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// API holds the handlers for the console backend.
type API struct {
	gen       *numbering.Generator
	store     numbering.CounterStore
	pipeline  *pipeline.ScanPipeline
	queue     async.Queue
	scans     repository.ScanRepository
	export    *export.Service
	loc       *time.Location
	maxUpload int64
	logger    *slog.Logger
}

func NewAPI(d Deps) *API {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 15 << 20
	}
	return &API{
		gen:       d.Generator,
		store:     d.Store,
		pipeline:  d.Pipeline,
		queue:     d.Queue,
		scans:     d.Scans,
		export:    d.Export,
		loc:       d.Location,
		maxUpload: d.MaxUploadBytes,
		logger:    d.Logger,
	}
}

// NewRouter builds the gin engine with middleware and every route registered.
func NewRouter(d Deps) *gin.Engine {
	api := NewAPI(d)

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery(api.logger))
	router.Use(RequestLogger(api.logger))
	router.Use(metrics.HTTP())

	router.GET("/healthz", api.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/numbers/enquiry", api.NextEnquiry)
		v1.POST("/numbers/order", api.NextOrder)
		v1.POST("/numbers/daily", api.NextDaily)
		v1.POST("/numbers/monthly", api.NextMonthly)
		v1.POST("/numbers/lr", api.NextLR)
		v1.GET("/numbers/lr/next", api.PeekLR)
		v1.POST("/enquiries/expiry", api.EnquiryExpiry)

		v1.POST("/scans", api.CreateScan)
		v1.GET("/scans", api.ListScans)
		v1.GET("/scans/export.xlsx", api.ExportScans)
		v1.GET("/scans/:id", api.GetScan)
		v1.PUT("/scans/:id/correction", api.CorrectScan)

		v1.POST("/counters/import", api.ImportCounters)
	}
	return router
}

// Healthz pings the counter store.
func (a *API) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": a.gen.Now().Format(time.RFC3339),
	})
}
