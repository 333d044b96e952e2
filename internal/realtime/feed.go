package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Feed consumes another session's change events over a websocket. Reconnect
// and backfill policy is deliberately left to the caller: when the stream
// breaks, Run returns the error and the feed is done.
type Feed struct {
	conn *websocket.Conn
}

// DialFeed connects to a hub's /ws endpoint.
func DialFeed(ctx context.Context, url string) (*Feed, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed %s: %w", url, err)
	}
	return &Feed{conn: conn}, nil
}

// Run reads events into out until the connection or ctx ends. The channel is
// not closed; the feed does not own it.
func (f *Feed) Run(ctx context.Context, out chan<- Event) error {
	defer f.conn.Close()

	go func() {
		<-ctx.Done()
		f.conn.SetReadDeadline(time.Now())
	}()

	for {
		var ev Event
		if err := f.conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read feed: %w", err)
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close tears the connection down.
func (f *Feed) Close() error {
	return f.conn.Close()
}
