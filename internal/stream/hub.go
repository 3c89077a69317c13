package stream

import (
	"log/slog"
	"sync"
)

// tickConn is the write side of a subscriber connection. *websocket.Conn
// satisfies it.
type tickConn interface {
	WriteJSON(v any) error
	Close() error
}

// subscriber is one connected browser with an optional symbol filter.
// An empty filter receives every tick.
type subscriber struct {
	conn    tickConn
	symbols map[string]bool
	send    chan Tick
}

// sendBuffer bounds per-subscriber backlog; ticks past it are dropped.
const sendBuffer = 64

// Hub fans ticks from the provider stream out to connected clients. Slow
// consumers lose ticks rather than stalling the read loop.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Register attaches a connection with a symbol filter and starts its write
// pump. Unregister with the returned function.
func (h *Hub) Register(conn tickConn, symbols []string) (unregister func()) {
	filter := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		filter[s] = true
	}
	sub := &subscriber{
		conn:    conn,
		symbols: filter,
		send:    make(chan Tick, sendBuffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go sub.writePump()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			close(sub.send)
		})
	}
}

// Broadcast delivers a tick to every subscriber whose filter matches.
func (h *Hub) Broadcast(t Tick) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		if len(sub.symbols) > 0 && !sub.symbols[t.Symbol] {
			continue
		}
		select {
		case sub.send <- t:
		default:
			// Drop on slow consumer.
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (s *subscriber) writePump() {
	defer s.conn.Close()
	for tick := range s.send {
		if err := s.conn.WriteJSON(tick); err != nil {
			slog.Debug("Subscriber write failed", "symbol", tick.Symbol, "error", err)
			return
		}
	}
}
