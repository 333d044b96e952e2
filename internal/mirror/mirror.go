// Package mirror keeps an in-memory copy of the user's planner data
// consistent with the authoritative store. Mutations apply locally first and
// persist in the background; the change feed folds in writes from other
// sessions. Consumers read snapshots and derived views, never the
// collections themselves.
package mirror

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"planner/internal/model"
	"planner/internal/tree"
)

// Mirror owns the four entity collections. One mutex makes every logical
// step (optimistic apply, confirmation, event merge, resync swap) atomic;
// across steps there is no ordering guarantee and last write wins.
type Mirror struct {
	owner  string
	stores Stores

	mu      sync.Mutex
	folders []model.Folder
	tasks   []model.Task
	goals   []model.Goal
	blocks  []model.ScheduleBlock

	// pending tracks optimistic creates by temp id so confirmation is a
	// plain lookup-and-swap. A resync clears it; confirmations arriving
	// afterwards leave the collections alone.
	pending map[string]pendingOp
}

type pendingOp struct {
	tempID string
}

func New(owner string, stores Stores) *Mirror {
	return &Mirror{
		owner:   owner,
		stores:  stores,
		pending: make(map[string]pendingOp),
	}
}

// Snapshot is a read-only copy of the flat collections.
type Snapshot struct {
	Folders []model.Folder
	Tasks   []model.Task
	Goals   []model.Goal
	Blocks  []model.ScheduleBlock
}

// Snapshot copies the current collections. Rows are replaced wholesale on
// every change, so the copies never alias live mirror state; tag slices are
// the one field needing a deep copy.
func (m *Mirror) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := slices.Clone(m.tasks)
	for i := range tasks {
		tasks[i].Tags = slices.Clone(tasks[i].Tags)
	}
	return Snapshot{
		Folders: slices.Clone(m.folders),
		Tasks:   tasks,
		Goals:   slices.Clone(m.goals),
		Blocks:  slices.Clone(m.blocks),
	}
}

// Tree rebuilds the derived folder forest from the current collections.
func (m *Mirror) Tree() []*tree.Node {
	s := m.Snapshot()
	return tree.Build(s.Folders, s.Tasks)
}

// Inbox returns the tasks filed in no folder.
func (m *Mirror) Inbox() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Task
	for _, t := range m.tasks {
		if t.FolderID == nil {
			out = append(out, t)
		}
	}
	return out
}

// FolderItems aggregates the folder's own tasks and goals plus those of
// every descendant folder.
func (m *Mirror) FolderItems(id string) ([]model.Task, []model.Goal) {
	s := m.Snapshot()
	roots := tree.Build(s.Folders, s.Tasks)
	ids := map[string]bool{id: true}
	for _, d := range tree.DescendantIDs(roots, id) {
		ids[d] = true
	}

	var tasks []model.Task
	for _, t := range s.Tasks {
		if t.FolderID != nil && ids[*t.FolderID] {
			tasks = append(tasks, t)
		}
	}
	var goals []model.Goal
	for _, g := range s.Goals {
		if g.FolderID != nil && ids[*g.FolderID] {
			goals = append(goals, g)
		}
	}
	return tasks, goals
}

// Resync replaces every collection with the store's current state. In-flight
// optimistic writes are forgotten; whatever the store committed comes back
// here or through the change feed.
func (m *Mirror) Resync(ctx context.Context) error {
	folders, err := m.stores.Folders.Select(ctx, m.owner)
	if err != nil {
		return fmt.Errorf("resync folders: %w", err)
	}
	tasks, err := m.stores.Tasks.Select(ctx, m.owner)
	if err != nil {
		return fmt.Errorf("resync tasks: %w", err)
	}
	goals, err := m.stores.Goals.Select(ctx, m.owner)
	if err != nil {
		return fmt.Errorf("resync goals: %w", err)
	}
	blocks, err := m.stores.Schedule.Select(ctx, m.owner)
	if err != nil {
		return fmt.Errorf("resync schedule blocks: %w", err)
	}

	m.mu.Lock()
	m.folders, m.tasks, m.goals, m.blocks = folders, tasks, goals, blocks
	clear(m.pending)
	m.mu.Unlock()
	return nil
}

func folderID(f model.Folder) string       { return f.ID }
func taskID(t model.Task) string           { return t.ID }
func goalID(g model.Goal) string           { return g.ID }
func blockID(b model.ScheduleBlock) string { return b.ID }

func indexOf[T any](rows []T, idOf func(T) string, id string) int {
	return slices.IndexFunc(rows, func(r T) bool { return idOf(r) == id })
}

func deleteRow[T any](rows []T, idOf func(T) string, id string) []T {
	if i := indexOf(rows, idOf, id); i >= 0 {
		return slices.Delete(rows, i, i+1)
	}
	return rows
}
