package server

import (
	"github.com/gin-gonic/gin"

	"github.com/finwatch/finwatch/internal/session"
)

// NewRouter wires all routes. When resolver is nil every caller is a guest.
func NewRouter(h *Handler, resolver *session.Resolver) *gin.Engine {
	router := gin.Default()

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api")
	if resolver != nil {
		api.Use(session.Authenticate(resolver))
	}

	// Market data passthrough (raw provider JSON).
	api.GET("/market", h.MarketData)
	api.GET("/search", h.Suggest)

	// Auth proxy to the hosted identity provider.
	auth := api.Group("/auth")
	auth.POST("/signin", h.SignIn)
	auth.POST("/signup", h.SignUp)
	auth.POST("/signout", h.SignOut)
	auth.POST("/reset", h.ResetPassword)

	// Watchlist state.
	wl := api.Group("/watchlist")
	wl.GET("", h.GetWatchlist)
	wl.POST("/refresh", h.RefreshSelected)
	wl.POST("/select/:symbol", h.SelectSymbol)
	wl.POST("/:symbol", h.AddSymbol)
	wl.DELETE("/:symbol", h.RemoveSymbol)

	// Live ticks.
	api.GET("/stream", h.StreamTicks)

	return router
}
