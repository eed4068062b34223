package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parking-billing-backend/config"
	"parking-billing-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	h.responses = cache.New(ttl, 2*ttl)
	caching := mw.Cache(h.responses, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/facilities", caching, h.GetFacilities)
		api.GET("/facilities/:facility_id/spots", h.GetAvailableSpots)
		api.GET("/facilities/:facility_id/sessions/open", h.GetOpenSessions)
		api.GET("/facilities/:facility_id/sessions/closed", h.GetClosedSessions)
		api.GET("/facilities/:facility_id/summary", h.GetSummary)
		api.GET("/tariffs", caching, h.GetTariffs)

		api.POST("/sessions", h.PostSession)
		api.GET("/sessions/:session_id", h.GetSession)
		api.GET("/sessions/:session_id/quote", h.GetQuote)
		api.POST("/sessions/:session_id/close", h.PostClose)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
