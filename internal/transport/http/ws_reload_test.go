package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestReloadBroadcastReachesClients(t *testing.T) {
	hub := NewReloadHub(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/reload", hub.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/reload"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, "subscription", func() bool { return hub.subscriberCount() == 1 })

	hub.Broadcast()

	var msg reloadMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "reload" {
		t.Fatalf("expected reload, got %q", msg.Type)
	}

	conn.Close()
	waitFor(t, "unsubscribe", func() bool { return hub.subscriberCount() == 0 })
}

func TestReloadBroadcastCoalesces(t *testing.T) {
	hub := NewReloadHub(nil)
	signals, cancel := hub.subscribe()
	defer cancel()

	// Nobody reads between these; a single pending signal is enough.
	hub.Broadcast()
	hub.Broadcast()
	hub.Broadcast()

	select {
	case <-signals:
	default:
		t.Fatal("expected a pending signal")
	}
	select {
	case <-signals:
		t.Fatal("expected broadcasts to coalesce into one signal")
	default:
	}
}

func TestReloadCancelIsIdempotent(t *testing.T) {
	hub := NewReloadHub(nil)
	_, cancel := hub.subscribe()
	cancel()
	cancel()
	if n := hub.subscriberCount(); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}

	// Broadcast to nobody must not panic.
	hub.Broadcast()
}

func TestReloadBroadcastWithoutSubscriberThenSubscribe(t *testing.T) {
	hub := NewReloadHub(nil)
	hub.Broadcast()

	signals, cancel := hub.subscribe()
	defer cancel()
	select {
	case <-signals:
		t.Fatal("a broadcast before subscribing must not be delivered")
	default:
	}
}
