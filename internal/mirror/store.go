package mirror

import (
	"context"

	"planner/internal/model"
)

// Patch is a shallow set of wire-column updates. Keys are the snake_case
// column names; an explicit nil value clears a nullable column.
type Patch map[string]any

// The store interfaces cover the four operations the mirror needs from the
// authoritative store. Insert returns the canonical row, including the id
// the store assigned.

type FolderStore interface {
	Select(ctx context.Context, owner string) ([]model.Folder, error)
	Insert(ctx context.Context, row model.Folder) (model.Folder, error)
	UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Folder, error)
	DeleteByID(ctx context.Context, owner, id string) error
}

type TaskStore interface {
	Select(ctx context.Context, owner string) ([]model.Task, error)
	Insert(ctx context.Context, row model.Task) (model.Task, error)
	UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Task, error)
	DeleteByID(ctx context.Context, owner, id string) error
}

type GoalStore interface {
	Select(ctx context.Context, owner string) ([]model.Goal, error)
	Insert(ctx context.Context, row model.Goal) (model.Goal, error)
	UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Goal, error)
	DeleteByID(ctx context.Context, owner, id string) error
}

type ScheduleStore interface {
	Select(ctx context.Context, owner string) ([]model.ScheduleBlock, error)
	Insert(ctx context.Context, row model.ScheduleBlock) (model.ScheduleBlock, error)
	UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.ScheduleBlock, error)
	DeleteByID(ctx context.Context, owner, id string) error
}

// Stores bundles one store per entity type for injection into the mirror.
type Stores struct {
	Folders  FolderStore
	Tasks    TaskStore
	Goals    GoalStore
	Schedule ScheduleStore
}
