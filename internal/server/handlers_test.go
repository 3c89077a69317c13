package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/finwatch/finwatch/internal/aggregator"
	"github.com/finwatch/finwatch/internal/finnhub"
	"github.com/finwatch/finwatch/internal/view"
	"github.com/finwatch/finwatch/internal/watchlist"
)

// newFakeProvider stands in for the upstream market-data API.
// ZZZZ has no quote data; everything else quotes at 101.5.
func newFakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			if r.URL.Query().Get("symbol") == "ZZZZ" {
				w.Write([]byte(`{"c":0}`))
				return
			}
			w.Write([]byte(`{"c":101.5,"dp":1.1,"h":102,"l":100,"o":100.5,"pc":100.4}`))
		case "/stock/profile2":
			symbol := r.URL.Query().Get("symbol")
			json.NewEncoder(w).Encode(map[string]any{
				"name": symbol + " Inc", "ticker": symbol, "logo": symbol + ".png",
				"finnhubIndustry": "Technology", "marketCapitalization": 1500.0,
			})
		case "/company-news":
			w.Write([]byte(`[{"headline":"a","datetime":1},{"headline":"b","datetime":2}]`))
		case "/search":
			w.Write([]byte(`{"count":1,"result":[{"symbol":"AAPL","description":"APPLE INC","type":"Common Stock"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestRouter(t *testing.T, seed []string) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := newFakeProvider(t)
	t.Cleanup(provider.Close)

	path := filepath.Join(t.TempDir(), "watchlist.json")
	if seed != nil {
		raw, _ := json.Marshal(map[string][]string{"symbols": seed})
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	market := finnhub.NewClient("test-key", provider.URL)
	agg := aggregator.New(market)
	h := NewHandler(market, agg, nil, nil, nil, watchlist.NewFileStore(path), nil, nil)
	return NewRouter(h, nil), path
}

func doRequest(t *testing.T, router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) view.Snapshot {
	t.Helper()
	var snap view.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v (%s)", err, rec.Body.String())
	}
	return snap
}

func TestMarketDataValidation(t *testing.T) {
	router, _ := newTestRouter(t, []string{})

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing type", "/api/market", http.StatusBadRequest},
		{"unsupported type", "/api/market?type=candles&symbol=AAPL", http.StatusBadRequest},
		{"quote missing symbol", "/api/market?type=quote", http.StatusBadRequest},
		{"news missing dates", "/api/market?type=companyNews&symbol=AAPL", http.StatusBadRequest},
		{"search missing query", "/api/market?type=symbolSearch", http.StatusBadRequest},
		{"quote ok", "/api/market?type=quote&symbol=AAPL", http.StatusOK},
		{"profile ok", "/api/market?type=companyProfile&symbol=AAPL", http.StatusOK},
		{"news ok", "/api/market?type=companyNews&symbol=AAPL&from=2024-01-01&to=2024-01-08", http.StatusOK},
		{"search ok", "/api/market?type=symbolSearch&query=apple", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, tt.target)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusBadRequest {
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
					t.Errorf("expected an error message, got %s", rec.Body.String())
				}
			}
		})
	}
}

func TestMarketDataPassthrough(t *testing.T) {
	router, _ := newTestRouter(t, []string{})

	rec := doRequest(t, router, http.MethodGet, "/api/market?type=quote&symbol=AAPL")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"c":101.5,"dp":1.1,"h":102,"l":100,"o":100.5,"pc":100.4}` {
		t.Errorf("provider payload not passed through untouched: %s", rec.Body.String())
	}
}

func TestMarketDataUpstreamFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer provider.Close()

	market := finnhub.NewClient("test-key", provider.URL)
	h := NewHandler(market, aggregator.New(market), nil, nil, nil,
		watchlist.NewFileStore(filepath.Join(t.TempDir(), "wl.json")), nil, nil)
	router := NewRouter(h, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/market?type=quote&symbol=AAPL")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for upstream failure, got %d", rec.Code)
	}
}

func TestWatchlistLifecycle(t *testing.T) {
	router, path := newTestRouter(t, []string{"TSLA", "AAPL"})

	// Initial load: rows sorted, first symbol selected.
	rec := doRequest(t, router, http.MethodGet, "/api/watchlist")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if len(snap.Entries) != 2 || snap.Entries[0].Symbol != "AAPL" || snap.Entries[1].Symbol != "TSLA" {
		t.Fatalf("entries not sorted: %+v", snap.Entries)
	}
	if snap.Selected != "AAPL" || snap.Detail == nil || snap.Detail.Name != "AAPL Inc" {
		t.Errorf("first sorted symbol should be selected with detail: %+v", snap)
	}

	// Add NFLX: sorted in, selected, persisted exactly once.
	rec = doRequest(t, router, http.MethodPost, "/api/watchlist/NFLX")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	snap = decodeSnapshot(t, rec)
	symbols := make([]string, len(snap.Entries))
	for i, e := range snap.Entries {
		symbols[i] = e.Symbol
	}
	if !sort.StringsAreSorted(symbols) {
		t.Errorf("entries not sorted after add: %v", symbols)
	}
	if snap.Selected != "NFLX" {
		t.Errorf("added symbol should be selected, got %q", snap.Selected)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var stored map[string][]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, s := range stored["symbols"] {
		if s == "NFLX" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected NFLX persisted exactly once, got %d in %v", count, stored["symbols"])
	}

	// Adding it again conflicts.
	rec = doRequest(t, router, http.MethodPost, "/api/watchlist/NFLX")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate add, got %d", rec.Code)
	}

	// A symbol with no quote data is rejected and not persisted.
	rec = doRequest(t, router, http.MethodPost, "/api/watchlist/ZZZZ")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a dataless symbol, got %d", rec.Code)
	}

	// Removing the selected symbol hands selection to the next sorted one.
	rec = doRequest(t, router, http.MethodDelete, "/api/watchlist/NFLX")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	snap = decodeSnapshot(t, rec)
	if snap.Selected != "AAPL" {
		t.Errorf("expected AAPL selected after removal, got %q", snap.Selected)
	}

	// Refresh succeeds against the live provider.
	rec = doRequest(t, router, http.MethodPost, "/api/watchlist/refresh")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from refresh, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestWatchlistEmptiesAndClearsSelection(t *testing.T) {
	router, _ := newTestRouter(t, []string{"AAPL"})

	rec := doRequest(t, router, http.MethodGet, "/api/watchlist")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/watchlist/AAPL")
	snap := decodeSnapshot(t, rec)
	if snap.Selected != "" || snap.Detail != nil {
		t.Errorf("selection should clear when the list empties: %+v", snap)
	}

	// Refresh with nothing selected is a client error.
	rec = doRequest(t, router, http.MethodPost, "/api/watchlist/refresh")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for refresh without selection, got %d", rec.Code)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, []string{})

	rec := doRequest(t, router, http.MethodGet, "/api/search?q=apple")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Suggestions []aggregator.Suggestion `json:"suggestions"`
		Count       int                     `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Suggestions[0].Symbol != "AAPL" {
		t.Errorf("unexpected suggestions: %+v", body)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/search")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing query, got %d", rec.Code)
	}
}

func TestGuestSeedsDefaultWatchlist(t *testing.T) {
	router, _ := newTestRouter(t, nil) // no pre-existing file

	rec := doRequest(t, router, http.MethodGet, "/api/watchlist")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	snap := decodeSnapshot(t, rec)
	if len(snap.Entries) != len(watchlist.DefaultSymbols) {
		t.Errorf("expected the default seed list, got %d entries", len(snap.Entries))
	}
	symbols := make([]string, len(snap.Entries))
	for i, e := range snap.Entries {
		symbols[i] = e.Symbol
	}
	if !sort.StringsAreSorted(symbols) {
		t.Errorf("seeded entries not sorted: %v", symbols)
	}
}
