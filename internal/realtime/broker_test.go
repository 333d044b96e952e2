package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBrokerDeliversInOrder(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Insert(TableTasks, map[string]string{"id": "a"})
	b.Update(TableTasks, map[string]string{"id": "a"})
	b.Delete(TableTasks, map[string]string{"id": "a"})

	wantTypes := []EventType{EventInsert, EventUpdate, EventDelete}
	for i, want := range wantTypes {
		ev := recvEvent(t, sub)
		if ev.Type != want || ev.Table != TableTasks {
			t.Fatalf("event %d = %s %s, want %s tasks", i, ev.Type, ev.Table, want)
		}
	}
}

func TestBrokerEventPayloads(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Insert(TableFolders, map[string]any{"id": "f1", "title": "inbox"})
	ev := recvEvent(t, sub)
	var row struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(ev.New, &row); err != nil {
		t.Fatalf("decode new record: %v", err)
	}
	if row.ID != "f1" || row.Title != "inbox" {
		t.Fatalf("row = %+v", row)
	}
	if ev.Old != nil {
		t.Fatalf("insert carries an old record: %s", ev.Old)
	}
}

func TestBrokerFansOut(t *testing.T) {
	b := NewBroker()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer b.Unsubscribe(s1)
	defer b.Unsubscribe(s2)

	b.Insert(TableGoals, map[string]string{"id": "g"})
	if ev := recvEvent(t, s1); ev.Table != TableGoals {
		t.Fatalf("s1 got %+v", ev)
	}
	if ev := recvEvent(t, s2); ev.Table != TableGoals {
		t.Fatalf("s2 got %+v", ev)
	}
}

func TestBrokerUnsubscribeCloses(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	// Double unsubscribe must not panic.
	b.Unsubscribe(sub)
}

func TestBrokerDropsStalledSubscriber(t *testing.T) {
	b := NewBroker()
	stalled := b.Subscribe()

	// Fill the stalled subscriber past its buffer without draining it.
	for i := 0; i <= subscriberBuffer; i++ {
		b.Insert(TableTasks, map[string]int{"n": i})
	}

	// The stalled channel was closed after its buffered events.
	n := 0
	for range stalled {
		n++
	}
	if n != subscriberBuffer {
		t.Fatalf("drained %d events from dropped subscriber, want %d", n, subscriberBuffer)
	}

	// Later subscribers are unaffected by the drop.
	healthy := b.Subscribe()
	defer b.Unsubscribe(healthy)
	b.Insert(TableTasks, map[string]string{"id": "after"})
	if ev := recvEvent(t, healthy); ev.Type != EventInsert {
		t.Fatalf("healthy subscriber broken: %+v", ev)
	}
}
