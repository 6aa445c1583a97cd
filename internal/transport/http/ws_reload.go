package http

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReloadHub fans a content-change signal out to connected pages. Pages in
// watch mode open /ws/reload and refresh themselves when a message lands.
type ReloadHub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[chan struct{}]struct{}
}

func NewReloadHub(log *zap.Logger) *ReloadHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReloadHub{
		log:         log,
		subscribers: make(map[chan struct{}]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Broadcast wakes every subscriber. Sends never block; a subscriber that
// still has a pending signal needs no second one, so reloads coalesce.
func (h *ReloadHub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *ReloadHub) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *ReloadHub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

type reloadMessage struct {
	Type string `json:"type"`
}

// ServeWS upgrades the request and pushes a reload message whenever the
// content changes. The peer sends nothing useful; its read side is drained
// only to notice the close.
func (h *ReloadHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	signals, cancel := h.subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case _, ok := <-signals:
			if !ok {
				return
			}
			if err := conn.WriteJSON(reloadMessage{Type: "reload"}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
