package events_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fotobook/nft-engine/internal/events"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := events.NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c1 := dial(t, url)
	defer c1.Close()
	c2 := dial(t, url)
	defer c2.Close()

	// Registration runs through the hub loop; give it a beat.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(events.Message{Type: events.TypeBidPlaced, AssetID: 7, Bidder: "bob", Amount: "15"})

	for _, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg events.Message
		if err := c.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if msg.Type != events.TypeBidPlaced || msg.AssetID != 7 || msg.Bidder != "bob" {
			t.Errorf("unexpected message: %+v", msg)
		}
	}

	// A disconnected client is pruned while the others keep receiving.
	c2.Close()
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(events.Message{Type: events.TypeAuctionEnded, AssetID: 7, Winner: "bob"})

	c1.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg events.Message
	if err := c1.ReadJSON(&msg); err != nil {
		t.Fatalf("read after peer disconnect failed: %v", err)
	}
	if msg.Type != events.TypeAuctionEnded || msg.Winner != "bob" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestBroadcast_NilHub(t *testing.T) {
	// Services constructed without a hub broadcast into the void.
	var h *events.Hub
	h.Broadcast(events.Message{Type: events.TypeMinted, AssetID: 1})
}
