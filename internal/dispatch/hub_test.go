package dispatch

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHubDeliversOnlyToJoinedRoom(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	cart := dial(t, srv)
	other := dial(t, srv)
	if err := cart.WriteJSON(controlMessage{Action: "join", Room: "shoppingCart"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := other.WriteJSON(controlMessage{Action: "join", Room: "reservations"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitFor(t, func() bool { return hub.RoomSize("shoppingCart") == 1 && hub.RoomSize("reservations") == 1 })

	if err := hub.Publish(context.Background(), "shoppingCart", "New search for vehicles from A to B"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var got Message
	cart.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := cart.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Room != "shoppingCart" || got.Message != "New search for vehicles from A to B" {
		t.Fatalf("unexpected message %+v", got)
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if err := other.ReadJSON(&got); err == nil {
		t.Fatalf("socket in another room received %+v", got)
	}
}

func TestHubLeaveAndDisconnect(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	c.WriteJSON(controlMessage{Action: "join", Room: "r1"})
	waitFor(t, func() bool { return hub.RoomSize("r1") == 1 })

	c.WriteJSON(controlMessage{Action: "leave", Room: "r1"})
	waitFor(t, func() bool { return hub.RoomSize("r1") == 0 })
	if n := hub.Deliver("r1", "nobody home"); n != 0 {
		t.Fatalf("expected no deliveries, got %d", n)
	}

	c.WriteJSON(controlMessage{Action: "join", Room: "r2"})
	waitFor(t, func() bool { return hub.RoomSize("r2") == 1 })
	c.Close()
	waitFor(t, func() bool { return hub.Sessions() == 0 && hub.RoomSize("r2") == 0 })
}

func TestChannel(t *testing.T) {
	if Channel("shoppingCart") != "notifications:shoppingCart" {
		t.Fatalf("unexpected channel %q", Channel("shoppingCart"))
	}
}
