package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/finwatch/finwatch/internal/aggregator"
	"github.com/finwatch/finwatch/internal/finnhub"
	"github.com/finwatch/finwatch/internal/session"
	"github.com/finwatch/finwatch/internal/stream"
	"github.com/finwatch/finwatch/internal/view"
)

// guestKey identifies the shared unauthenticated view.
const guestKey = "guest"

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	market   *finnhub.Client
	agg      *aggregator.Aggregator
	auth     *session.Client
	resolver *session.Resolver

	userStore  view.Store // nil when no database is configured
	guestStore view.Store

	hub  *stream.Hub    // nil when streaming is disabled
	live *stream.Client // nil when streaming is disabled

	mu    sync.Mutex
	views map[string]*view.Watchlist
}

// NewHandler creates a new Handler with the given dependencies. auth,
// resolver, userStore, hub, and live may be nil when the corresponding
// feature is not configured.
func NewHandler(market *finnhub.Client, agg *aggregator.Aggregator, auth *session.Client,
	resolver *session.Resolver, userStore, guestStore view.Store, hub *stream.Hub, live *stream.Client) *Handler {
	return &Handler{
		market:     market,
		agg:        agg,
		auth:       auth,
		resolver:   resolver,
		userStore:  userStore,
		guestStore: guestStore,
		hub:        hub,
		live:       live,
		views:      make(map[string]*view.Watchlist),
	}
}

// viewFor returns the caller's watchlist view, creating it on first use.
// Authenticated users get a per-user view over the database store; guests
// (or deployments without a database) share the file-backed view.
func (h *Handler) viewFor(c *gin.Context) *view.Watchlist {
	key, store := guestKey, h.guestStore
	if user, ok := session.UserFrom(c); ok && h.userStore != nil {
		key, store = user.ID, h.userStore
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.views[key]; ok {
		return v
	}
	v := view.New(store, h.agg, key)
	h.views[key] = v
	return v
}

// MarketData handles GET /api/market
// It forwards a parameterized request to the provider and returns the raw
// JSON payload, per the type/parameter contract of the aggregation
// boundary.
func (h *Handler) MarketData(c *gin.Context) {
	kind := c.Query("type")
	params := map[string]string{
		"symbol": c.Query("symbol"),
		"query":  c.Query("query"),
		"from":   c.Query("from"),
		"to":     c.Query("to"),
	}

	raw, err := h.market.Raw(c.Request.Context(), kind, params)
	if err != nil {
		var badReq *finnhub.BadRequestError
		if errors.As(err, &badReq) {
			c.JSON(http.StatusBadRequest, gin.H{"error": badReq.Message})
			return
		}
		slog.Error("Market data request failed", "type", kind, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// GetWatchlist handles GET /api/watchlist
// Loads the caller's persisted symbols, fetches each row, and returns the
// full display state.
func (h *Handler) GetWatchlist(c *gin.Context) {
	v := h.viewFor(c)
	if err := v.Load(c.Request.Context()); err != nil {
		slog.Error("Watchlist load failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v.Snapshot())
}

// AddSymbol handles POST /api/watchlist/:symbol
func (h *Handler) AddSymbol(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	v := h.viewFor(c)

	err := v.Add(c.Request.Context(), symbol)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, v.Snapshot())
	case errors.Is(err, view.ErrEmptySymbol):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, view.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": symbol + " is already in your watchlist"})
	case isNoData(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not fetch data for " + symbol + ", please check the ticker"})
	default:
		slog.Error("Failed to add symbol", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// RemoveSymbol handles DELETE /api/watchlist/:symbol
func (h *Handler) RemoveSymbol(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	v := h.viewFor(c)

	if err := v.Remove(c.Request.Context(), symbol); err != nil {
		slog.Error("Failed to remove symbol", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v.Snapshot())
}

// SelectSymbol handles POST /api/watchlist/select/:symbol
func (h *Handler) SelectSymbol(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	v := h.viewFor(c)

	v.Select(c.Request.Context(), symbol)
	c.JSON(http.StatusOK, v.Snapshot())
}

// RefreshSelected handles POST /api/watchlist/refresh
// Unlike row loads, a failed refresh is reported, not degraded.
func (h *Handler) RefreshSelected(c *gin.Context) {
	v := h.viewFor(c)

	err := v.Refresh(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, v.Snapshot())
	case errors.Is(err, view.ErrNoSelection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Quote refresh failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// Suggest handles GET /api/search
func (h *Handler) Suggest(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	suggestions, err := h.agg.Suggest(c.Request.Context(), query)
	if err != nil {
		slog.Error("Symbol search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "count": len(suggestions)})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "finwatch",
	})
}

func isNoData(err error) bool {
	var noData *aggregator.NoDataError
	return errors.As(err, &noData)
}
