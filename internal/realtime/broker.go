package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// subscriber channels buffer this many events before the broker gives up on
// them.
const subscriberBuffer = 256

// Broker fans change events out to in-process subscribers. The repositories
// publish into it after every committed write; the mirror's reconciler and
// the websocket hub subscribe.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a channel receiving every event published after this
// call, in publish order.
func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish delivers ev to every subscriber. A subscriber that has stopped
// draining its channel is dropped rather than blocking the writer.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[warn] realtime: subscriber buffer full, dropping subscriber")
			delete(b.subs, ch)
			close(ch)
		}
	}
}

// Insert publishes an INSERT event for row.
func (b *Broker) Insert(table Table, row any) {
	b.publishRow(EventInsert, table, row, nil)
}

// Update publishes an UPDATE event carrying the full new row.
func (b *Broker) Update(table Table, row any) {
	b.publishRow(EventUpdate, table, row, nil)
}

// Delete publishes a DELETE event carrying the old row.
func (b *Broker) Delete(table Table, old any) {
	b.publishRow(EventDelete, table, nil, old)
}

func (b *Broker) publishRow(typ EventType, table Table, newRow, oldRow any) {
	ev := Event{Type: typ, Table: table}
	if newRow != nil {
		raw, err := json.Marshal(newRow)
		if err != nil {
			log.Printf("[warn] realtime: marshal %s %s: %v", typ, table, err)
			return
		}
		ev.New = raw
	}
	if oldRow != nil {
		raw, err := json.Marshal(oldRow)
		if err != nil {
			log.Printf("[warn] realtime: marshal %s %s: %v", typ, table, err)
			return
		}
		ev.Old = raw
	}
	b.Publish(ev)
}
