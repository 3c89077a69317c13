package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/finwatch/finwatch/internal/watchlist"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-origin behind the app; cross-origin upgrades are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamTicks handles GET /api/stream
// Upgrades the connection and forwards live trade ticks for the symbols in
// the "symbols" query parameter (comma-separated; empty means all ticks the
// server is subscribed to). Upstream subscriptions are reference-counted
// per symbol.
func (h *Handler) StreamTicks(c *gin.Context) {
	if h.hub == nil || h.live == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "live streaming is not configured"})
		return
	}

	var symbols []string
	if raw := c.Query("symbols"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = watchlist.Normalize(s); s != "" {
				symbols = append(symbols, s)
			}
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	for _, s := range symbols {
		if err := h.live.Subscribe(s); err != nil {
			slog.Warn("Upstream subscribe failed", "symbol", s, "error", err)
		}
	}
	unregister := h.hub.Register(conn, symbols)

	defer func() {
		unregister()
		for _, s := range symbols {
			if err := h.live.Unsubscribe(s); err != nil {
				slog.Warn("Upstream unsubscribe failed", "symbol", s, "error", err)
			}
		}
	}()

	// Consume (and discard) client frames until the connection drops.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
