package realtime

import "encoding/json"

// EventType enumerates the kinds of change a store can report.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Table names the collection an event applies to. Values match the store's
// table names.
type Table string

const (
	TableFolders        Table = "folders"
	TableTasks          Table = "tasks"
	TableGoals          Table = "goals"
	TableScheduleBlocks Table = "schedule_blocks"
)

// Event is one change to a single row, delivered in commit order. New holds
// the row after the change (insert/update), Old the row before it (delete).
type Event struct {
	Type  EventType       `json:"type"`
	Table Table           `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}
