package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"planner/internal/model"
	"planner/internal/tree"
)

var (
	// ErrWouldCycle rejects a folder move that would make the folder its
	// own ancestor.
	ErrWouldCycle = errors.New("folder move would create a cycle")

	// ErrNotFound reports a mutation aimed at an id the mirror does not
	// hold.
	ErrNotFound = errors.New("entity not in mirror")
)

// Every mutation applies its optimistic write before returning and signals
// the persistence outcome on the returned channel (buffered, so nobody has
// to receive). Once issued, a persist is never cancelled: it completes and
// reconciles even if the caller has moved on.

// FolderInput carries the caller-supplied fields for a new folder.
type FolderInput struct {
	ParentID  *string
	Title     string
	Type      model.FolderType
	Color     *string
	Icon      *string
	SortOrder int
}

// TaskInput carries the caller-supplied fields for a new task.
type TaskInput struct {
	FolderID      *string
	Title         string
	Content       string
	Type          model.TaskType
	Status        model.TaskStatus
	Priority      model.Priority
	DueDate       *time.Time
	ScheduledDate *time.Time
	Tags          []string
	SortOrder     int
}

// GoalInput carries the caller-supplied fields for a new goal.
type GoalInput struct {
	FolderID     *string
	Title        string
	TargetAmount float64
	Deadline     *time.Time
	Pinned       bool
}

// BlockInput carries the caller-supplied fields for a new schedule block.
type BlockInput struct {
	Title         string
	Time          string
	Duration      int
	Type          model.BlockType
	ScheduledDate time.Time
	TaskID        *string
}

// CreateFolder inserts an optimistic folder under a temp id and swaps in the
// canonical row once the store confirms. On failure the temp row vanishes
// without a trace.
func (m *Mirror) CreateFolder(ctx context.Context, in FolderInput) (model.Folder, <-chan error) {
	now := time.Now()
	row := model.Folder{
		ID:        uuid.NewString(),
		Owner:     m.owner,
		ParentID:  in.ParentID,
		Title:     in.Title,
		Type:      in.Type,
		Color:     in.Color,
		Icon:      in.Icon,
		SortOrder: in.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !row.Type.Valid() {
		row.Type = model.FolderGeneric
	}

	m.mu.Lock()
	m.folders = append(m.folders, row)
	m.pending[row.ID] = pendingOp{tempID: row.ID}
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		canonical, err := m.stores.Folders.Insert(ctx, row)
		m.mu.Lock()
		defer m.mu.Unlock()
		_, tracked := m.pending[row.ID]
		delete(m.pending, row.ID)
		if err != nil {
			if tracked {
				m.folders = deleteRow(m.folders, folderID, row.ID)
			}
			ch <- fmt.Errorf("create folder: %w", err)
			return
		}
		if tracked {
			m.folders = confirmCreate(m.folders, folderID, row.ID, canonical)
		}
		ch <- nil
	}()
	return row, ch
}

// CreateTask inserts an optimistic task with defaults filled in: new tasks
// start as todo, not done, not pinned.
func (m *Mirror) CreateTask(ctx context.Context, in TaskInput) (model.Task, <-chan error) {
	now := time.Now()
	row := model.Task{
		ID:            uuid.NewString(),
		Owner:         m.owner,
		FolderID:      in.FolderID,
		Title:         in.Title,
		Content:       in.Content,
		Type:          in.Type,
		Status:        in.Status,
		Priority:      in.Priority,
		DueDate:       in.DueDate,
		ScheduledDate: in.ScheduledDate,
		Tags:          slices.Clone(in.Tags),
		SortOrder:     in.SortOrder,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !row.Type.Valid() {
		row.Type = model.TaskKindTask
	}
	if !row.Status.Valid() {
		row.Status = model.StatusTodo
	}
	if !row.Priority.Valid() {
		row.Priority = model.PriorityMedium
	}

	m.mu.Lock()
	m.tasks = append(m.tasks, row)
	m.pending[row.ID] = pendingOp{tempID: row.ID}
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		canonical, err := m.stores.Tasks.Insert(ctx, row)
		m.mu.Lock()
		defer m.mu.Unlock()
		_, tracked := m.pending[row.ID]
		delete(m.pending, row.ID)
		if err != nil {
			if tracked {
				m.tasks = deleteRow(m.tasks, taskID, row.ID)
			}
			ch <- fmt.Errorf("create task: %w", err)
			return
		}
		if tracked {
			m.tasks = confirmCreate(m.tasks, taskID, row.ID, canonical)
		}
		ch <- nil
	}()
	return row, ch
}

// CreateGoal inserts an optimistic goal starting at zero progress.
func (m *Mirror) CreateGoal(ctx context.Context, in GoalInput) (model.Goal, <-chan error) {
	now := time.Now()
	row := model.Goal{
		ID:           uuid.NewString(),
		Owner:        m.owner,
		FolderID:     in.FolderID,
		Title:        in.Title,
		TargetAmount: in.TargetAmount,
		Deadline:     in.Deadline,
		Pinned:       in.Pinned,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	m.mu.Lock()
	m.goals = append(m.goals, row)
	m.pending[row.ID] = pendingOp{tempID: row.ID}
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		canonical, err := m.stores.Goals.Insert(ctx, row)
		m.mu.Lock()
		defer m.mu.Unlock()
		_, tracked := m.pending[row.ID]
		delete(m.pending, row.ID)
		if err != nil {
			if tracked {
				m.goals = deleteRow(m.goals, goalID, row.ID)
			}
			ch <- fmt.Errorf("create goal: %w", err)
			return
		}
		if tracked {
			m.goals = confirmCreate(m.goals, goalID, row.ID, canonical)
		}
		ch <- nil
	}()
	return row, ch
}

// CreateBlock inserts an optimistic schedule block.
func (m *Mirror) CreateBlock(ctx context.Context, in BlockInput) (model.ScheduleBlock, <-chan error) {
	row := model.ScheduleBlock{
		ID:            uuid.NewString(),
		Owner:         m.owner,
		Title:         in.Title,
		Time:          in.Time,
		Duration:      in.Duration,
		Type:          in.Type,
		ScheduledDate: in.ScheduledDate,
		TaskID:        in.TaskID,
		CreatedAt:     time.Now(),
	}
	if !row.Type.Valid() {
		row.Type = model.BlockEvent
	}

	m.mu.Lock()
	m.blocks = append(m.blocks, row)
	m.pending[row.ID] = pendingOp{tempID: row.ID}
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		canonical, err := m.stores.Schedule.Insert(ctx, row)
		m.mu.Lock()
		defer m.mu.Unlock()
		_, tracked := m.pending[row.ID]
		delete(m.pending, row.ID)
		if err != nil {
			if tracked {
				m.blocks = deleteRow(m.blocks, blockID, row.ID)
			}
			ch <- fmt.Errorf("create schedule block: %w", err)
			return
		}
		if tracked {
			m.blocks = confirmCreate(m.blocks, blockID, row.ID, canonical)
		}
		ch <- nil
	}()
	return row, ch
}

// UpdateFolder shallow-merges patch into the folder immediately. A failed
// persist forces a full resync: by then later edits may have landed and a
// precise rollback is unsafe.
func (m *Mirror) UpdateFolder(ctx context.Context, id string, patch Patch) <-chan error {
	m.mu.Lock()
	i := indexOf(m.folders, folderID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(fmt.Errorf("update folder %s: %w", id, ErrNotFound))
	}
	merged, err := mergeRow(m.folders[i], patch)
	if err != nil {
		m.mu.Unlock()
		return done(fmt.Errorf("update folder %s: %w", id, err))
	}
	merged.UpdatedAt = time.Now()
	m.folders[i] = merged
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		if _, err := m.stores.Folders.UpdateByID(ctx, m.owner, id, patch); err != nil {
			m.recoverFrom("update folder "+id, err)
			ch <- fmt.Errorf("update folder %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// UpdateTask shallow-merges patch into the task immediately; failure forces
// a full resync.
func (m *Mirror) UpdateTask(ctx context.Context, id string, patch Patch) <-chan error {
	m.mu.Lock()
	i := indexOf(m.tasks, taskID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(fmt.Errorf("update task %s: %w", id, ErrNotFound))
	}
	merged, err := mergeRow(m.tasks[i], patch)
	if err != nil {
		m.mu.Unlock()
		return done(fmt.Errorf("update task %s: %w", id, err))
	}
	merged.UpdatedAt = time.Now()
	m.tasks[i] = merged
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		if _, err := m.stores.Tasks.UpdateByID(ctx, m.owner, id, patch); err != nil {
			m.recoverFrom("update task "+id, err)
			ch <- fmt.Errorf("update task %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// UpdateGoal shallow-merges patch into the goal immediately; failure forces
// a full resync.
func (m *Mirror) UpdateGoal(ctx context.Context, id string, patch Patch) <-chan error {
	m.mu.Lock()
	i := indexOf(m.goals, goalID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(fmt.Errorf("update goal %s: %w", id, ErrNotFound))
	}
	merged, err := mergeRow(m.goals[i], patch)
	if err != nil {
		m.mu.Unlock()
		return done(fmt.Errorf("update goal %s: %w", id, err))
	}
	merged.UpdatedAt = time.Now()
	m.goals[i] = merged
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		if _, err := m.stores.Goals.UpdateByID(ctx, m.owner, id, patch); err != nil {
			m.recoverFrom("update goal "+id, err)
			ch <- fmt.Errorf("update goal %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// UpdateBlock shallow-merges patch into the schedule block immediately;
// failure forces a full resync.
func (m *Mirror) UpdateBlock(ctx context.Context, id string, patch Patch) <-chan error {
	m.mu.Lock()
	i := indexOf(m.blocks, blockID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(fmt.Errorf("update schedule block %s: %w", id, ErrNotFound))
	}
	merged, err := mergeRow(m.blocks[i], patch)
	if err != nil {
		m.mu.Unlock()
		return done(fmt.Errorf("update schedule block %s: %w", id, err))
	}
	m.blocks[i] = merged
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		if _, err := m.stores.Schedule.UpdateByID(ctx, m.owner, id, patch); err != nil {
			m.recoverFrom("update schedule block "+id, err)
			ch <- fmt.Errorf("update schedule block %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// MoveFolder reparents a folder once the cycle guard approves. Rejection
// surfaces as ErrWouldCycle with no local change and no store call. A
// failed persist forces a resync: a mis-resolved subtree is too fiddly to
// repair surgically.
func (m *Mirror) MoveFolder(ctx context.Context, id string, newParent *string) <-chan error {
	m.mu.Lock()
	if !tree.CanMove(m.folders, id, newParent) {
		m.mu.Unlock()
		return done(ErrWouldCycle)
	}
	i := indexOf(m.folders, folderID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(fmt.Errorf("move folder %s: %w", id, ErrNotFound))
	}
	m.folders[i].ParentID = newParent
	m.folders[i].UpdatedAt = time.Now()
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		if _, err := m.stores.Folders.UpdateByID(ctx, m.owner, id, Patch{"parent_id": newParent}); err != nil {
			m.recoverFrom("move folder "+id, err)
			ch <- fmt.Errorf("move folder %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// RemoveFolder deletes the folder locally and from the store. Children and
// tasks keep their references; the tree builder promotes the orphans to the
// root. On failure the pre-delete folders are restored.
func (m *Mirror) RemoveFolder(ctx context.Context, id string) <-chan error {
	m.mu.Lock()
	i := indexOf(m.folders, folderID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(nil)
	}
	prev := slices.Clone(m.folders)
	m.folders = slices.Delete(m.folders, i, i+1)
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		if err := m.stores.Folders.DeleteByID(ctx, m.owner, id); err != nil {
			m.mu.Lock()
			m.folders = prev
			m.mu.Unlock()
			ch <- fmt.Errorf("remove folder %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// RemoveTask deletes the task and cascades to every schedule block that
// references it, locally and in the store. On failure both collections are
// restored from their pre-delete snapshots.
func (m *Mirror) RemoveTask(ctx context.Context, id string) <-chan error {
	m.mu.Lock()
	i := indexOf(m.tasks, taskID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(nil)
	}
	prevTasks := slices.Clone(m.tasks)
	prevBlocks := slices.Clone(m.blocks)
	m.tasks = slices.Delete(m.tasks, i, i+1)
	var cascade []string
	m.blocks = slices.DeleteFunc(m.blocks, func(b model.ScheduleBlock) bool {
		if b.TaskID != nil && *b.TaskID == id {
			cascade = append(cascade, b.ID)
			return true
		}
		return false
	})
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		err := m.stores.Tasks.DeleteByID(ctx, m.owner, id)
		for _, bid := range cascade {
			if berr := m.stores.Schedule.DeleteByID(ctx, m.owner, bid); berr != nil && err == nil {
				err = berr
			}
		}
		if err != nil {
			m.mu.Lock()
			m.tasks = prevTasks
			m.blocks = prevBlocks
			m.mu.Unlock()
			ch <- fmt.Errorf("remove task %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// RemoveGoal deletes the goal; on failure the pre-delete goals are restored.
func (m *Mirror) RemoveGoal(ctx context.Context, id string) <-chan error {
	m.mu.Lock()
	i := indexOf(m.goals, goalID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(nil)
	}
	prev := slices.Clone(m.goals)
	m.goals = slices.Delete(m.goals, i, i+1)
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		if err := m.stores.Goals.DeleteByID(ctx, m.owner, id); err != nil {
			m.mu.Lock()
			m.goals = prev
			m.mu.Unlock()
			ch <- fmt.Errorf("remove goal %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// RemoveBlock deletes the schedule block; on failure the pre-delete blocks
// are restored.
func (m *Mirror) RemoveBlock(ctx context.Context, id string) <-chan error {
	m.mu.Lock()
	i := indexOf(m.blocks, blockID, id)
	if i < 0 {
		m.mu.Unlock()
		return done(nil)
	}
	prev := slices.Clone(m.blocks)
	m.blocks = slices.Delete(m.blocks, i, i+1)
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		if err := m.stores.Schedule.DeleteByID(ctx, m.owner, id); err != nil {
			m.mu.Lock()
			m.blocks = prev
			m.mu.Unlock()
			ch <- fmt.Errorf("remove schedule block %s: %w", id, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// recoverFrom falls back to a full resync after a failed update-shaped
// persist. It runs on a fresh context so a caller's dead context cannot
// leave the mirror diverged from the store.
func (m *Mirror) recoverFrom(op string, cause error) {
	log.Printf("[warn] %s failed (%v), resyncing from store", op, cause)
	if err := m.Resync(context.Background()); err != nil {
		log.Printf("[warn] resync after failed %s: %v", op, err)
	}
}

// confirmCreate swaps the temp row for the canonical one. If the canonical
// row already arrived through the change feed, the temp row is dropped
// instead of duplicated.
func confirmCreate[T any](rows []T, idOf func(T) string, tempID string, canonical T) []T {
	i := indexOf(rows, idOf, tempID)
	if i < 0 {
		return rows
	}
	if cid := idOf(canonical); cid != tempID && indexOf(rows, idOf, cid) >= 0 {
		return slices.Delete(rows, i, i+1)
	}
	rows[i] = canonical
	return rows
}

// mergeRow overlays a patch onto a row through a JSON round-trip: present
// keys overwrite, absent keys stay, explicit nulls clear nullable fields.
func mergeRow[T any](base T, patch Patch) (T, error) {
	out := base
	raw, err := json.Marshal(patch)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func done(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}
