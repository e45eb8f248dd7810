package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"predictive-maintenance-backend/config"
	"predictive-maintenance-backend/internal/mw"
	"predictive-maintenance-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, opts Options, server config.ServerConfig, auth config.AuthConfig) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	handler := NewHandler(s, opts)

	rateLimiter := mw.RateLimiter(rate.Limit(server.RateLimitPerSec), server.RateLimitBurst)

	// GET responses are cached until the TTL expires or any write succeeds.
	responses := opts.Cache
	if responses == nil {
		responses = mw.NewResponseCache(time.Duration(server.CacheTTLSeconds) * time.Second)
	}
	caching := responses.Cache()

	r.GET("/", handler.Root)
	if opts.Metrics != nil {
		r.GET("/metrics", opts.Metrics.Handler())
	}

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Auth(auth.SecretKey), responses.Invalidate())
	{
		api.GET("/", handler.Root)

		api.GET("/machines", caching, handler.ListMachines)
		api.POST("/machines", handler.CreateMachine)
		api.GET("/machines/:id", caching, handler.GetMachine)
		api.PUT("/machines/:id", handler.UpdateMachine)
		api.DELETE("/machines/:id", handler.DeleteMachine)
		api.GET("/machines/:id/status", caching, handler.GetMachineStatus)
		api.PUT("/machines/:id/status", handler.PutMachineStatus)

		api.POST("/sensor-data", handler.CreateReading)
		api.POST("/sensor-data/batch", handler.CreateReadingsBatch)
		api.GET("/sensor-data/:id", caching, handler.ListReadings)
		api.GET("/sensor-data/:id/latest", caching, handler.LatestReading)
		api.GET("/sensor-data/:id/stats", caching, handler.ReadingStats)
		api.GET("/sensor-data/:id/aggregate", caching, handler.AggregateReadings)
		api.GET("/sensor-data/:id/export", handler.ExportReadings)

		api.GET("/predictions/:id", caching, handler.Predict)
		api.GET("/predictions/:id/anomalies", caching, handler.Anomalies)
		api.GET("/predictions/:id/health", caching, handler.Health)

		// :id is a machine id on the GET routes and a record id on PUT/DELETE.
		api.GET("/maintenance", caching, handler.ListMaintenance)
		api.POST("/maintenance", handler.CreateMaintenance)
		api.GET("/maintenance/:id", caching, handler.MachineMaintenance)
		api.PUT("/maintenance/:id", handler.UpdateMaintenance)
		api.DELETE("/maintenance/:id", handler.DeleteMaintenance)
		api.GET("/maintenance/:id/latest", caching, handler.LatestMaintenance)
		api.GET("/maintenance/:id/schedule", caching, handler.MaintenanceSchedule)

		api.GET("/dashboard/summary", caching, handler.DashboardSummary)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		api.GET("/ws", handler.Live)
	}

	return r
}
