package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/models"
	"github.com/goorm-engineers4/delivery-backend/replica"
	"github.com/goorm-engineers4/delivery-backend/utils"
	"github.com/goorm-engineers4/delivery-backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the startup probe passes. Until the
	// backing stores are ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil || config.GetReplicaDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length")
	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	// Routes are registered before the workers exist (the port must open
	// before the backing stores connect), so the registry is locked.
	workers := &workerRegistry{byFamily: map[string]workflow.FamilyWorker{}}
	r.POST("/api/sync/:family/run", manualTickHandler(workers))
	r.GET("/api/stocks/:menuId", stockHandler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	config.ConnectReplicaWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running it as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	rep := replica.NewMongoStore(config.GetReplicaDB())

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	storeWorker := workflow.NewStoreSyncWorker(db, rep, logger)
	menuWorker := workflow.NewMenuSyncWorker(db, rep, logger)
	reviewWorker := workflow.NewReviewSyncWorker(db, rep, logger)
	purgeWorker := workflow.NewPurgeWorker(db, logger)
	workers.add(storeWorker, menuWorker, reviewWorker, purgeWorker)
	go storeWorker.Run(workerCtx)
	go menuWorker.Run(workerCtx)
	go reviewWorker.Run(workerCtx)
	go purgeWorker.Run(workerCtx)

	logger.WithFields(logrus.Fields{"info": "Connection Established"}).Info("catalog sync service listening on :", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop schedulers first so no new pushes start while draining.
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	config.DisconnectReplica(shutdownCtx)
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

type workerRegistry struct {
	mu       sync.RWMutex
	byFamily map[string]workflow.FamilyWorker
}

func (r *workerRegistry) add(workers ...workflow.FamilyWorker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range workers {
		r.byFamily[w.Family()] = w
	}
}

func (r *workerRegistry) get(family string) (workflow.FamilyWorker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byFamily[family]
	return w, ok
}

// manualTickHandler runs one reconciliation tick for the named family
// synchronously. Ops use it to drain a backlog without waiting for the
// next poll.
func manualTickHandler(workers *workerRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		family := c.Param("family")
		worker, ok := workers.get(family)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown sync family: " + family})
			return
		}
		worker.RunOnce(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"family": family, "status": "completed"})
	}
}

// stockHandler reads the current quantity for one menu, preferring the
// cache and falling back to the ledger on a miss.
func stockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		menuId, err := strconv.Atoi(c.Param("menuId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "menuId must be an integer"})
			return
		}

		if quantity, ok := models.GetStockFromCache(menuId); ok {
			c.JSON(http.StatusOK, gin.H{"menu_id": menuId, "quantity": quantity, "source": "cache"})
			return
		}

		ledgers := models.NewLedgerStore(config.GetDB())
		ledger, err := ledgers.GetByMenuId(c.Request.Context(), menuId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no ledger for menu"})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger lookup failed"})
			return
		}
		models.CacheStock(menuId, ledger.Quantity)
		c.JSON(http.StatusOK, gin.H{"menu_id": menuId, "quantity": ledger.Quantity, "source": "ledger"})
	}
}

// customErrorLogger logs only requests that accumulated errors, tagged
// with the request's correlation id.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			entry := logger.WithField("path", c.Request.URL.Path)
			if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
				entry = entry.WithField("correlationId", cid)
			}
			entry.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
