package mirror

import (
	"context"
	"encoding/json"
	"log"

	"planner/internal/realtime"
)

// Consume applies change events strictly in delivery order until ctx ends
// or the channel closes. No buffering, no reordering, no conflict
// resolution beyond the per-event rules in Apply.
func (m *Mirror) Consume(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.Apply(ev)
		}
	}
}

// Apply merges one remote change event into the collections. INSERTs dedup
// by id (the event is often the echo of this session's own confirmed
// create), UPDATEs merge into the existing row or are dropped if the row is
// gone, DELETEs are idempotent.
func (m *Mirror) Apply(ev realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.Table {
	case realtime.TableFolders:
		m.folders = applyEvent(m.folders, folderID, ev)
	case realtime.TableTasks:
		m.tasks = applyEvent(m.tasks, taskID, ev)
	case realtime.TableGoals:
		m.goals = applyEvent(m.goals, goalID, ev)
	case realtime.TableScheduleBlocks:
		m.blocks = applyEvent(m.blocks, blockID, ev)
	default:
		log.Printf("[warn] realtime: event for unknown table %q", ev.Table)
	}
}

type recordKey struct {
	ID string `json:"id"`
}

func applyEvent[T any](rows []T, idOf func(T) string, ev realtime.Event) []T {
	switch ev.Type {
	case realtime.EventInsert:
		var row T
		if err := json.Unmarshal(ev.New, &row); err != nil {
			log.Printf("[warn] realtime: decode %s insert: %v", ev.Table, err)
			return rows
		}
		if indexOf(rows, idOf, idOf(row)) >= 0 {
			return rows // already hold this row, likely our own echo
		}
		return append(rows, row)

	case realtime.EventUpdate:
		var key recordKey
		if err := json.Unmarshal(ev.New, &key); err != nil || key.ID == "" {
			log.Printf("[warn] realtime: decode %s update key: %v", ev.Table, err)
			return rows
		}
		i := indexOf(rows, idOf, key.ID)
		if i < 0 {
			return rows // raced a local delete, drop silently
		}
		merged := rows[i]
		if err := json.Unmarshal(ev.New, &merged); err != nil {
			log.Printf("[warn] realtime: decode %s update: %v", ev.Table, err)
			return rows
		}
		rows[i] = merged
		return rows

	case realtime.EventDelete:
		var key recordKey
		if err := json.Unmarshal(ev.Old, &key); err != nil || key.ID == "" {
			log.Printf("[warn] realtime: decode %s delete key: %v", ev.Table, err)
			return rows
		}
		return deleteRow(rows, idOf, key.ID)

	default:
		log.Printf("[warn] realtime: unknown event type %q", ev.Type)
		return rows
	}
}
