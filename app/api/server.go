package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mlevkov/iptv-catalog/app/metrics"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
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
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Request counting for Prometheus
	r.Use(func(c *gin.Context) {
		c.Next()
		metrics.HTTPRequests.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Playlist export endpoints
	r.GET("/playlist.m3u", handler.ExportCatalog)
	r.GET("/folders/:id/playlist.m3u", handler.ExportFolder)

	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/channels", handler.APIListChannels)
			api.POST("/channels/:id/favorite", handler.APIToggleFavorite)
			api.POST("/channels/:id/hidden", handler.APIToggleHidden)
			api.POST("/channels/:id/play", handler.APIRecordPlay)
			api.GET("/history", handler.APIGetHistory)

			api.GET("/sources", handler.APIListSources)
			api.POST("/sources", handler.APIImportSource)
			api.POST("/sources/:id/refresh", handler.APIRefreshSource)
			api.POST("/sources/refresh", handler.APIRefreshAll)
			api.DELETE("/sources/:id", handler.APIDeleteSource)

			api.GET("/folders", handler.APIListFolders)
			api.POST("/folders", handler.APISaveFolder)
			api.GET("/folders/:id/channels", handler.APIGetFolderChannels)
			api.DELETE("/folders/:id", handler.APIDeleteFolder)
			api.POST("/folders/:id/items", handler.APIAddFolderItem)
			api.DELETE("/folders/:id/items/:channelId", handler.APIRemoveFolderItem)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"playlist": "/playlist.m3u",
			"folder":   "/folders/<id>/playlist.m3u",
			"health":   "/health",
			"stats":    "/stats",
			"metrics":  "/metrics",
		}

		if apiAccessKey != "" {
			endpoints["channels"] = "/api/channels (requires X-API-Key header)"
			endpoints["sources"] = "/api/sources (requires X-API-Key header)"
			endpoints["folders"] = "/api/folders (requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "IPTV Catalog",
			"description": "M3U playlist ingestion and catalog reconciliation engine",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
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
