package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// End-to-end: broker -> hub -> websocket -> feed, the same path a second
// device uses to mirror this session's writes.
func TestHubFeedRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker()
	hub := NewHub()
	sub := b.Subscribe()
	go hub.Run(ctx, sub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	feed, err := DialFeed(ctx, wsURL)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}

	defer feed.Close()

	out := make(chan Event, 8)
	go feed.Run(ctx, out)

	// Give the hub a moment to register the session before publishing.
	time.Sleep(100 * time.Millisecond)

	raw, _ := json.Marshal(map[string]string{"id": "t1", "title": "shared"})
	b.Publish(Event{Type: EventInsert, Table: TableTasks, New: raw})

	select {
	case ev := <-out:
		if ev.Type != EventInsert || ev.Table != TableTasks {
			t.Fatalf("event = %s %s", ev.Type, ev.Table)
		}
		var row struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.New, &row); err != nil || row.ID != "t1" {
			t.Fatalf("payload = %s (err %v)", ev.New, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event never reached the feed")
	}
}
