package stream

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Tick is one live trade for a symbol.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"` // UNIX milliseconds
}

// finnhubMessage matches the JSON structure from Finnhub's WebSocket.
type finnhubMessage struct {
	Type string      `json:"type"`
	Data []tradeData `json:"data"`
}

type tradeData struct {
	Symbol    string  `json:"s"` // Symbol
	Price     float64 `json:"p"` // Last Price
	Timestamp int64   `json:"t"` // UNIX milliseconds timestamp
	Volume    float64 `json:"v"` // Volume
}

// Client connects to the Finnhub WebSocket API and forwards trade ticks
// into the Hub. Symbol subscriptions are reference-counted so the upstream
// subscription follows whichever watchlists are currently open.
type Client struct {
	apiKey string
	url    string
	hub    *Hub

	mu   sync.Mutex
	conn *websocket.Conn
	subs *subSet

	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient creates a new streaming client. url defaults to the public
// endpoint when empty.
func NewClient(apiKey, url string, hub *Hub) *Client {
	if url == "" {
		url = "wss://ws.finnhub.io"
	}
	return &Client{
		apiKey: apiKey,
		url:    url,
		hub:    hub,
		subs:   newSubSet(),
		done:   make(chan struct{}),
	}
}

// Start connects to the provider and begins the background read loop.
func (c *Client) Start() error {
	url := c.url + "?token=" + c.apiKey
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(conn)
	return nil
}

// Subscribe registers interest in a symbol's trades. The upstream
// subscription is only sent on the first interested party.
func (c *Client) Subscribe(symbol string) error {
	if !c.subs.acquire(symbol) {
		return nil
	}
	return c.send(map[string]any{"type": "subscribe", "symbol": symbol})
}

// Unsubscribe releases interest in a symbol; the upstream unsubscribe is
// sent when the last interested party leaves.
func (c *Client) Unsubscribe(symbol string) error {
	if !c.subs.release(symbol) {
		return nil
	}
	return c.send(map[string]any{"type": "unsubscribe", "symbol": symbol})
}

func (c *Client) send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil // not connected; subscription state is kept for later
	}
	return c.conn.WriteJSON(msg)
}

// readLoop continuously reads messages from the WebSocket connection and
// fans trade ticks out through the hub.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			slog.Error("Stream read failed", "error", err)
			return
		}

		var msg finnhubMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Warn("Unparseable stream message", "error", err)
			continue
		}
		if msg.Type != "trade" {
			continue
		}

		for _, trade := range msg.Data {
			c.hub.Broadcast(Tick{
				Symbol:    trade.Symbol,
				Price:     trade.Price,
				Volume:    trade.Volume,
				Timestamp: trade.Timestamp,
			})
		}
	}
}

// Close shuts down the read loop and the upstream connection.
func (c *Client) Close() error {
	close(c.done)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
	c.wg.Wait()
	return nil
}

// subSet reference-counts symbol subscriptions.
type subSet struct {
	mu     sync.Mutex
	counts map[string]int
}

func newSubSet() *subSet {
	return &subSet{counts: make(map[string]int)}
}

// acquire reports whether this is the first interest in symbol.
func (s *subSet) acquire(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[symbol]++
	return s.counts[symbol] == 1
}

// release reports whether the last interest in symbol just left.
func (s *subSet) release(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[symbol] == 0 {
		return false
	}
	s.counts[symbol]--
	if s.counts[symbol] == 0 {
		delete(s.counts, symbol)
		return true
	}
	return false
}
