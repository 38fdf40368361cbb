package feed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zaptest.NewLogger(t))
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	if err := hub.Publish(Frame{Type: "stats", Cycle: 42, Payload: map[string]int{"demand": 9}}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got struct {
		Type    string         `json:"type"`
		Cycle   uint64         `json:"cycle"`
		Payload map[string]int `json:"payload"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "stats" || got.Cycle != 42 || got.Payload["demand"] != 9 {
		t.Errorf("frame = %+v", got)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 0 })
}

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < 200; i++ {
		if err := hub.Publish(Frame{Type: "stats", Cycle: uint64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if hub.Dropped() != 200-64 {
		t.Errorf("dropped = %d, want %d", hub.Dropped(), 200-64)
	}
}

func TestPublishRejectsUnencodable(t *testing.T) {
	hub := NewHub(nil)
	if err := hub.Publish(Frame{Payload: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
}
