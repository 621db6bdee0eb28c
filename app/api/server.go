package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/cpe-tracker/app/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type ServerOptions struct {
	APIAccessKey string
	// FetchRateLimit is the number of manual fetches allowed per minute; 0 disables the limit.
	FetchRateLimit int
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, opts ServerOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		ExposeHeaders:   []string{"Content-Length", "Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))

	setupRoutes(r, handler, opts)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, opts ServerOptions) {
	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if opts.APIAccessKey != "" {
		api.Use(authMiddleware(opts.APIAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled (API_ACCESS_KEY not set)")
	}

	{
		api.GET("/cpes", handler.ListRecords)
		api.POST("/cpes", handler.CreateRecord)
		api.PUT("/cpes/:id", handler.UpdateRecord)
		api.DELETE("/cpes/:id", handler.DeleteRecord)
		api.DELETE("/cpes/:id/purge", handler.PurgeRecord)

		api.POST("/cpes/:id/proof", handler.UploadProof)
		api.GET("/cpes/:id/proof", handler.GetProof)
		api.DELETE("/cpes/:id/proof", handler.DeleteProof)

		api.GET("/feeds", handler.ListFeeds)
		api.POST("/feeds", handler.CreateFeed)
		api.PUT("/feeds/:id", handler.UpdateFeed)
		api.DELETE("/feeds/:id", handler.DeleteFeed)

		api.POST("/fetch", fetchLimiter(opts.FetchRateLimit), handler.TriggerFetch)
		api.GET("/export", handler.ExportCSV)
		api.GET("/summary", handler.GetSummary)

		admin := api.Group("/admin")
		admin.POST("/backfill-presenters", handler.BackfillPresenters)
		admin.POST("/backfill-titles", handler.BackfillTitles)
		admin.POST("/backfill-subtitles", handler.BackfillSubtitles)
		admin.GET("/storage", handler.GetStorage)
	}

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// fetchLimiter allows perMinute manual fetches per minute across all clients.
func fetchLimiter(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "60")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limited",
			"message": "rate limit exceeded",
		})
	}
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
