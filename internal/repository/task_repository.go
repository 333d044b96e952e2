package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"planner/internal/model"
	"planner/internal/realtime"
)

// TaskRepository persists tasks and announces every committed change on the
// broker.
type TaskRepository struct {
	db     *gorm.DB
	events *realtime.Broker
}

func NewTaskRepository(db *gorm.DB, events *realtime.Broker) *TaskRepository {
	return &TaskRepository{db: db, events: events}
}

func (r *TaskRepository) Select(ctx context.Context, owner string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("owner = ?", owner).
		Order("sort_order ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Insert(ctx context.Context, row model.Task) (model.Task, error) {
	now := time.Now()
	row.ID = uuid.NewString()
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	r.events.Insert(realtime.TableTasks, row)
	return row, nil
}

func (r *TaskRepository) UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Task, error) {
	db := r.db.WithContext(ctx)
	var row model.Task
	if err := db.Where("owner = ? AND id = ?", owner, id).First(&row).Error; err != nil {
		return model.Task{}, fmt.Errorf("find task %s: %w", id, err)
	}
	if err := mergeFields(&row, fields); err != nil {
		return model.Task{}, fmt.Errorf("apply task patch: %w", err)
	}
	row.UpdatedAt = time.Now()
	if err := db.Save(&row).Error; err != nil {
		return model.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	r.events.Update(realtime.TableTasks, row)
	return row, nil
}

func (r *TaskRepository) DeleteByID(ctx context.Context, owner, id string) error {
	db := r.db.WithContext(ctx)
	var row model.Task
	err := db.Where("owner = ? AND id = ?", owner, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // already gone
	}
	if err != nil {
		return fmt.Errorf("find task %s: %w", id, err)
	}
	if err := db.Where("owner = ? AND id = ?", owner, id).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	r.events.Delete(realtime.TableTasks, row)
	return nil
}
