package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"resenas/internal/middleware"
	"resenas/internal/reviews"
	synchub "resenas/internal/sync"
)

func newRouter(store *reviews.Store, hub *synchub.Hub, log *zap.Logger, tracer trace.Tracer) *gin.Engine {
	router := gin.New()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Tracing(tracer),
		middleware.Logger(log.Named("http")),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": store.Backend()})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":        "not_ready",
				"storage_error": err.Error(),
				"tcp_clients":   stats.TCPClients,
				"ws_clients":    stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"storage":     "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/ws", synchub.WSHandler(hub))

	reviews.NewHandler(store, hub).RegisterRoutes(router.Group("/api/resenas"))

	return router
}
