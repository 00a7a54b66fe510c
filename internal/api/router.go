package api

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/mw"
)

// RouterOptions are the transport settings of the router.
type RouterOptions struct {
	RequestIPHeader string
	RateLimitPerSec float64
	RateLimitBurst  int
	RequestTimeout  time.Duration
	MaxUploadBytes  int64
	Cache           *mw.ResponseCache
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	Log             *zap.Logger
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	if opts.RequestIPHeader != "" {
		r.TrustedPlatform = opts.RequestIPHeader
	}
	r.MaxMultipartMemory = opts.MaxUploadBytes

	r.Use(
		mw.Recovery(opts.Log),
		mw.Logger(opts.Log),
		mw.Metrics(opts.Metrics),
		mw.CORS(),
		gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	rateLimiter := mw.RateLimiter(mw.NewIPRateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst), opts.Metrics)
	caching := mw.Cache(opts.Cache, opts.Metrics)

	// API group
	api := r.Group("/api")
	api.GET("/health", GetHealth)
	api.Use(rateLimiter, mw.Timeout(opts.RequestTimeout), mw.BodyLimit(opts.MaxUploadBytes))
	{
		api.GET("/printers", caching, h.GetPrinters)
		api.GET("/errors", caching, h.GetErrors)
		api.PUT("/errors/:id/parts", h.PutErrorParts)
		api.POST("/parts", h.PostPart)

		api.POST("/import", h.PostImport)
		api.POST("/import-dipsw", h.PostImportDipSwitches)

		api.GET("/dipswitches", caching, h.GetDipSwitches)
		api.DELETE("/dipswitches", h.DeleteDipSwitches)
	}

	return r
}
