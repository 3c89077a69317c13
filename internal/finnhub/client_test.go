package finnhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRawValidation(t *testing.T) {
	c := NewClient("test-key", "http://unused.invalid")

	tests := []struct {
		name   string
		kind   string
		params map[string]string
	}{
		{"quote without symbol", KindQuote, nil},
		{"profile without symbol", KindProfile, map[string]string{}},
		{"news without dates", KindNews, map[string]string{"symbol": "AAPL"}},
		{"news without symbol", KindNews, map[string]string{"from": "2024-01-01", "to": "2024-01-08"}},
		{"search without query", KindSearch, nil},
		{"unsupported kind", "candles", map[string]string{"symbol": "AAPL"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Raw(context.Background(), tt.kind, tt.params)
			var badReq *BadRequestError
			if !errors.As(err, &badReq) {
				t.Errorf("expected BadRequestError, got %v", err)
			}
		})
	}
}

func TestRawPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", got)
		}
		if got := r.URL.Query().Get("token"); got != "test-key" {
			t.Errorf("expected token to be forwarded, got %q", got)
		}
		w.Write([]byte(`{"c":123.45,"dp":1.2}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	raw, err := c.Raw(context.Background(), KindQuote, map[string]string{"symbol": "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"c":123.45,"dp":1.2}` {
		t.Errorf("payload not passed through untouched: %s", raw)
	}
}

func TestUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"limit exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	_, err := c.Quote(context.Background(), "AAPL")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", upstream.Status)
	}
}

func TestQuoteDecodesProviderFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":189.5,"dp":-0.42,"h":191.0,"l":188.2,"o":190.1,"pc":190.3}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	q, err := c.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Current != 189.5 || q.PercentChange != -0.42 || q.PrevClose != 190.3 {
		t.Errorf("quote decoded incorrectly: %+v", q)
	}
}

func TestCompanyNewsPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"headline":"second","datetime":100},{"headline":"first","datetime":200}]`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	items, err := c.CompanyNews(context.Background(), "AAPL", "2024-01-01", "2024-01-08")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].Headline != "second" {
		t.Errorf("provider order not preserved: %+v", items)
	}
}
