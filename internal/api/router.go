package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"meeting-room-backend/config"
	"meeting-room-backend/internal/booking"
	"meeting-room-backend/internal/clock"
	"meeting-room-backend/internal/mw"
	"meeting-room-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, svc *booking.Service, clk clock.Clock, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()
	if cfg.RequestIPHeader != "" {
		// Behind a reverse proxy the rate limiter keys on this header's IP.
		r.TrustedPlatform = cfg.RequestIPHeader
	}

	handler := NewHandler(s, svc, clk)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/reservations", handler.CreateReservation)
		api.POST("/reservations/:id/checkin", handler.CheckIn)
		api.POST("/reservations/:id/checkout", handler.CheckOut)
		api.POST("/reservations/:id/cancel", handler.CancelReservation)

		// Read models for kiosks and monitoring panels; cached because
		// every display polls them.
		api.GET("/rooms", caching, handler.GetRooms)
		api.GET("/rooms/:room_id/reservations", handler.GetRoomReservations)
		api.GET("/rooms/:room_id/status", caching, handler.GetRoomStatus)
	}

	return r
}
