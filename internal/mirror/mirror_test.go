package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"planner/internal/model"
)

var errRemote = errors.New("remote store unavailable")

// fakeRemote plays the authoritative store for engine tests. Gates let a
// test hold a persist in flight while asserting optimistic local state;
// fail switches make the next calls of that kind error out.
type fakeRemote struct {
	mu      sync.Mutex
	folders []model.Folder
	tasks   []model.Task
	goals   []model.Goal
	blocks  []model.ScheduleBlock

	failInsert bool
	failUpdate bool
	failDelete bool

	insertGate chan struct{}
	updateGate chan struct{}

	inserts []string // table names in call order
	updates []string // "table/id"
	deletes []string // "table/id"
}

func newFakeRemote() *fakeRemote { return &fakeRemote{} }

func (r *fakeRemote) stores() Stores {
	return Stores{
		Folders:  fakeFolders{r},
		Tasks:    fakeTasks{r},
		Goals:    fakeGoals{r},
		Schedule: fakeBlocks{r},
	}
}

func waitGate(gate chan struct{}) {
	if gate != nil {
		<-gate
	}
}

func patchInto[T any](row T, fields map[string]any) (T, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return row, err
	}
	err = json.Unmarshal(raw, &row)
	return row, err
}

type fakeFolders struct{ r *fakeRemote }

func (s fakeFolders) Select(ctx context.Context, owner string) ([]model.Folder, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return slices.Clone(s.r.folders), nil
}

func (s fakeFolders) Insert(ctx context.Context, row model.Folder) (model.Folder, error) {
	waitGate(s.r.insertGate)
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.inserts = append(s.r.inserts, "folders")
	if s.r.failInsert {
		return model.Folder{}, errRemote
	}
	row.ID = uuid.NewString()
	s.r.folders = append(s.r.folders, row)
	return row, nil
}

func (s fakeFolders) UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Folder, error) {
	waitGate(s.r.updateGate)
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.updates = append(s.r.updates, "folders/"+id)
	if s.r.failUpdate {
		return model.Folder{}, errRemote
	}
	i := slices.IndexFunc(s.r.folders, func(f model.Folder) bool { return f.ID == id })
	if i < 0 {
		return model.Folder{}, errRemote
	}
	row, err := patchInto(s.r.folders[i], fields)
	if err != nil {
		return model.Folder{}, err
	}
	s.r.folders[i] = row
	return row, nil
}

func (s fakeFolders) DeleteByID(ctx context.Context, owner, id string) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.deletes = append(s.r.deletes, "folders/"+id)
	if s.r.failDelete {
		return errRemote
	}
	s.r.folders = slices.DeleteFunc(s.r.folders, func(f model.Folder) bool { return f.ID == id })
	return nil
}

type fakeTasks struct{ r *fakeRemote }

func (s fakeTasks) Select(ctx context.Context, owner string) ([]model.Task, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return slices.Clone(s.r.tasks), nil
}

func (s fakeTasks) Insert(ctx context.Context, row model.Task) (model.Task, error) {
	waitGate(s.r.insertGate)
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.inserts = append(s.r.inserts, "tasks")
	if s.r.failInsert {
		return model.Task{}, errRemote
	}
	row.ID = uuid.NewString()
	s.r.tasks = append(s.r.tasks, row)
	return row, nil
}

func (s fakeTasks) UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Task, error) {
	waitGate(s.r.updateGate)
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.updates = append(s.r.updates, "tasks/"+id)
	if s.r.failUpdate {
		return model.Task{}, errRemote
	}
	i := slices.IndexFunc(s.r.tasks, func(t model.Task) bool { return t.ID == id })
	if i < 0 {
		return model.Task{}, errRemote
	}
	row, err := patchInto(s.r.tasks[i], fields)
	if err != nil {
		return model.Task{}, err
	}
	s.r.tasks[i] = row
	return row, nil
}

func (s fakeTasks) DeleteByID(ctx context.Context, owner, id string) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.deletes = append(s.r.deletes, "tasks/"+id)
	if s.r.failDelete {
		return errRemote
	}
	s.r.tasks = slices.DeleteFunc(s.r.tasks, func(t model.Task) bool { return t.ID == id })
	return nil
}

type fakeGoals struct{ r *fakeRemote }

func (s fakeGoals) Select(ctx context.Context, owner string) ([]model.Goal, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return slices.Clone(s.r.goals), nil
}

func (s fakeGoals) Insert(ctx context.Context, row model.Goal) (model.Goal, error) {
	waitGate(s.r.insertGate)
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.inserts = append(s.r.inserts, "goals")
	if s.r.failInsert {
		return model.Goal{}, errRemote
	}
	row.ID = uuid.NewString()
	s.r.goals = append(s.r.goals, row)
	return row, nil
}

func (s fakeGoals) UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Goal, error) {
	waitGate(s.r.updateGate)
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.updates = append(s.r.updates, "goals/"+id)
	if s.r.failUpdate {
		return model.Goal{}, errRemote
	}
	i := slices.IndexFunc(s.r.goals, func(g model.Goal) bool { return g.ID == id })
	if i < 0 {
		return model.Goal{}, errRemote
	}
	row, err := patchInto(s.r.goals[i], fields)
	if err != nil {
		return model.Goal{}, err
	}
	s.r.goals[i] = row
	return row, nil
}

func (s fakeGoals) DeleteByID(ctx context.Context, owner, id string) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.deletes = append(s.r.deletes, "goals/"+id)
	if s.r.failDelete {
		return errRemote
	}
	s.r.goals = slices.DeleteFunc(s.r.goals, func(g model.Goal) bool { return g.ID == id })
	return nil
}

type fakeBlocks struct{ r *fakeRemote }

func (s fakeBlocks) Select(ctx context.Context, owner string) ([]model.ScheduleBlock, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return slices.Clone(s.r.blocks), nil
}

func (s fakeBlocks) Insert(ctx context.Context, row model.ScheduleBlock) (model.ScheduleBlock, error) {
	waitGate(s.r.insertGate)
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.inserts = append(s.r.inserts, "schedule_blocks")
	if s.r.failInsert {
		return model.ScheduleBlock{}, errRemote
	}
	row.ID = uuid.NewString()
	s.r.blocks = append(s.r.blocks, row)
	return row, nil
}

func (s fakeBlocks) UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.ScheduleBlock, error) {
	waitGate(s.r.updateGate)
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.updates = append(s.r.updates, "schedule_blocks/"+id)
	if s.r.failUpdate {
		return model.ScheduleBlock{}, errRemote
	}
	i := slices.IndexFunc(s.r.blocks, func(b model.ScheduleBlock) bool { return b.ID == id })
	if i < 0 {
		return model.ScheduleBlock{}, errRemote
	}
	row, err := patchInto(s.r.blocks[i], fields)
	if err != nil {
		return model.ScheduleBlock{}, err
	}
	s.r.blocks[i] = row
	return row, nil
}

func (s fakeBlocks) DeleteByID(ctx context.Context, owner, id string) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.deletes = append(s.r.deletes, "schedule_blocks/"+id)
	if s.r.failDelete {
		return errRemote
	}
	s.r.blocks = slices.DeleteFunc(s.r.blocks, func(b model.ScheduleBlock) bool { return b.ID == id })
	return nil
}

func strptr(s string) *string { return &s }

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for persistence result")
		return nil
	}
}

func seedTask(r *fakeRemote, id, title string, folderID *string) {
	r.tasks = append(r.tasks, model.Task{
		ID: id, Owner: "u1", FolderID: folderID, Title: title,
		Type: model.TaskKindTask, Status: model.StatusTodo, Priority: model.PriorityMedium,
	})
}

func seedFolder(r *fakeRemote, id string, parent *string) {
	r.folders = append(r.folders, model.Folder{
		ID: id, Owner: "u1", ParentID: parent, Title: id, Type: model.FolderGeneric,
	})
}

func newTestMirror(t *testing.T, r *fakeRemote) *Mirror {
	t.Helper()
	m := New("u1", r.stores())
	if err := m.Resync(context.Background()); err != nil {
		t.Fatalf("initial resync: %v", err)
	}
	return m
}

func TestResyncReplacesCollections(t *testing.T) {
	r := newFakeRemote()
	seedFolder(r, "f1", nil)
	seedTask(r, "t1", "remote task", strptr("f1"))
	r.goals = append(r.goals, model.Goal{ID: "g1", Owner: "u1", Title: "save", TargetAmount: 100})
	r.blocks = append(r.blocks, model.ScheduleBlock{ID: "b1", Owner: "u1", Title: "standup", Time: "09:00"})

	m := New("u1", r.stores())
	if err := m.Resync(context.Background()); err != nil {
		t.Fatalf("resync: %v", err)
	}
	s := m.Snapshot()
	if len(s.Folders) != 1 || len(s.Tasks) != 1 || len(s.Goals) != 1 || len(s.Blocks) != 1 {
		t.Fatalf("snapshot sizes = %d/%d/%d/%d, want 1 each",
			len(s.Folders), len(s.Tasks), len(s.Goals), len(s.Blocks))
	}
	if s.Tasks[0].Title != "remote task" {
		t.Fatalf("task title = %q", s.Tasks[0].Title)
	}
}

func TestSnapshotIsolatedFromMirror(t *testing.T) {
	r := newFakeRemote()
	seedTask(r, "t1", "before", nil)
	m := newTestMirror(t, r)

	s := m.Snapshot()
	if err := wait(t, m.UpdateTask(context.Background(), "t1", Patch{"title": "after"})); err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Tasks[0].Title != "before" {
		t.Fatalf("snapshot mutated behind the reader's back: %q", s.Tasks[0].Title)
	}
}

func TestInbox(t *testing.T) {
	r := newFakeRemote()
	seedFolder(r, "f1", nil)
	seedTask(r, "filed", "filed", strptr("f1"))
	seedTask(r, "loose", "loose", nil)
	m := newTestMirror(t, r)

	inbox := m.Inbox()
	if len(inbox) != 1 || inbox[0].ID != "loose" {
		t.Fatalf("inbox = %v, want [loose]", inbox)
	}
	for _, n := range m.Tree() {
		for _, tk := range n.Tasks {
			if tk.ID == "loose" {
				t.Fatalf("inbox task surfaced under folder %s", n.ID)
			}
		}
	}
}

func TestFolderItemsAggregatesDescendants(t *testing.T) {
	r := newFakeRemote()
	seedFolder(r, "root", nil)
	seedFolder(r, "child", strptr("root"))
	seedFolder(r, "other", nil)
	seedTask(r, "in-root", "a", strptr("root"))
	seedTask(r, "in-child", "b", strptr("child"))
	seedTask(r, "elsewhere", "c", strptr("other"))
	seedTask(r, "inbox", "d", nil)
	r.goals = append(r.goals, model.Goal{ID: "g1", Owner: "u1", FolderID: strptr("child"), Title: "nested goal"})

	m := newTestMirror(t, r)
	tasks, goals := m.FolderItems("root")

	var taskIDs []string
	for _, tk := range tasks {
		taskIDs = append(taskIDs, tk.ID)
	}
	slices.Sort(taskIDs)
	if !slices.Equal(taskIDs, []string{"in-child", "in-root"}) {
		t.Fatalf("aggregated tasks = %v", taskIDs)
	}
	if len(goals) != 1 || goals[0].ID != "g1" {
		t.Fatalf("aggregated goals = %v", goals)
	}
}
