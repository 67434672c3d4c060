package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/cdrr_triage/config"
	"bitbucket.org/mmdatafocus/cdrr_triage/middlewares"
	"bitbucket.org/mmdatafocus/cdrr_triage/reportstore"
	"bitbucket.org/mmdatafocus/cdrr_triage/utils"
	"bitbucket.org/mmdatafocus/cdrr_triage/workflow"
)

const defaultPort = "8080"

const badgeCacheTTL = 2 * time.Minute

// newRouter wires the full triage surface. requireReady gates app endpoints
// on Redis being connected; tests pass false to run without it.
func newRouter(store *reportstore.Client, reg *sessionRegistry, logger *logrus.Logger, locks submitLocker, requireReady bool) *gin.Engine {
	r := gin.New()

	// Correlation IDs: generate once per request, attach to context (the store
	// client forwards them outbound) and echo back to the caller.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Writer.Header().Set("x-correlation-id", cid)
		c.Next()
	})

	if requireReady {
		r.Use(func(c *gin.Context) {
			if c.Request.URL.Path == "/healthz" {
				c.Status(http.StatusNoContent)
				c.Abort()
				return
			}
			if config.GetRedisDB() == nil {
				c.AbortWithStatus(http.StatusServiceUnavailable)
				return
			}
			c.Next()
		})
	}

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			logger.Fatal("CORS_ALLOWED_ORIGINS must be set when GO_ENV=production")
		}
		corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "x-correlation-id")
	corsConfig.AllowCredentials = utils.GetEnvBool("CORS_ALLOW_CREDENTIALS", true)
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.SessionMiddleware(store))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	triage := r.Group("/triage")
	{
		triage.GET("/reports", listReportsHandler(reg))
		triage.GET("/reports/:id", getReportHandler(store))
		triage.POST("/reports", createReportHandler(store, locks))
		triage.PUT("/reports/:id", updateReportHandler(store, locks))
		triage.DELETE("/reports/:id", deleteReportHandler(store))
		triage.POST("/reports/bulk-delete", bulkDeleteHandler(store, reg))
		triage.POST("/selection", selectionHandler(reg))
		triage.GET("/permissions", permissionsHandler())
		triage.GET("/badge", badgeHandler())
	}

	r.NoRoute(customNotFoundHandler)
	return r
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			fields := logrus.Fields{}
			ctx := c.Request.Context()
			if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
				fields["correlationId"] = cid
			}
			if username, ok := utils.GetUsernameFromContext(ctx); ok {
				fields["username"] = username
			}
			if id, ok := utils.GetUserIdFromContext(ctx); ok {
				fields["userId"] = id
			}
			logger.WithFields(fields).Error(c.Errors.String())
		}
	}
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination: handle SIGTERM for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	store := reportstore.NewClient()
	registry := newSessionRegistry(store, logger)

	r := newRouter(store, registry, logger, redisSubmitLocker{}, true)

	// Start the HTTP server ASAP; until Redis is ready app endpoints 503.
	srv := &http.Server{Addr: ":" + port, Handler: r}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	log.Printf("listening on :%s", port)

	config.ConnectRedisWithRetry()

	// Badge poller: the 30s summary refresh. It only writes the cached badge
	// counts; pagination, selection, and sort state are never touched.
	pollerCtx, cancelPoller := context.WithCancel(context.Background())
	defer cancelPoller()
	poller := workflow.NewBadgePoller(store, logger, func(counts workflow.BucketCounts) {
		if err := config.SetRedisObject(badgeCacheKey, counts, badgeCacheTTL); err != nil {
			config.LogError(logger, "server.go", "badgePoller", "SetRedisObject", nil, err)
			return
		}
		// Heartbeat alongside the counts so the surface can show staleness.
		_ = config.SetRedisValue(badgeUpdatedKey, time.Now().UTC().Format(time.RFC3339), badgeCacheTTL)
	})
	go poller.Run(pollerCtx)

	logger.WithFields(logrus.Fields{
		"info": "triage service ready",
	}).Info("listening on http://localhost:" + port + "/")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the poller first so no badge write lands during drain.
	cancelPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
