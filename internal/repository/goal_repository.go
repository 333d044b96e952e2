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

// GoalRepository persists goals and announces every committed change on the
// broker.
type GoalRepository struct {
	db     *gorm.DB
	events *realtime.Broker
}

func NewGoalRepository(db *gorm.DB, events *realtime.Broker) *GoalRepository {
	return &GoalRepository{db: db, events: events}
}

func (r *GoalRepository) Select(ctx context.Context, owner string) ([]model.Goal, error) {
	var goals []model.Goal
	if err := r.db.WithContext(ctx).Where("owner = ?", owner).
		Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("select goals: %w", err)
	}
	return goals, nil
}

func (r *GoalRepository) Insert(ctx context.Context, row model.Goal) (model.Goal, error) {
	now := time.Now()
	row.ID = uuid.NewString()
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	r.events.Insert(realtime.TableGoals, row)
	return row, nil
}

func (r *GoalRepository) UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Goal, error) {
	db := r.db.WithContext(ctx)
	var row model.Goal
	if err := db.Where("owner = ? AND id = ?", owner, id).First(&row).Error; err != nil {
		return model.Goal{}, fmt.Errorf("find goal %s: %w", id, err)
	}
	if err := mergeFields(&row, fields); err != nil {
		return model.Goal{}, fmt.Errorf("apply goal patch: %w", err)
	}
	row.UpdatedAt = time.Now()
	if err := db.Save(&row).Error; err != nil {
		return model.Goal{}, fmt.Errorf("update goal %s: %w", id, err)
	}
	r.events.Update(realtime.TableGoals, row)
	return row, nil
}

func (r *GoalRepository) DeleteByID(ctx context.Context, owner, id string) error {
	db := r.db.WithContext(ctx)
	var row model.Goal
	err := db.Where("owner = ? AND id = ?", owner, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // already gone
	}
	if err != nil {
		return fmt.Errorf("find goal %s: %w", id, err)
	}
	if err := db.Where("owner = ? AND id = ?", owner, id).Delete(&model.Goal{}).Error; err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	r.events.Delete(realtime.TableGoals, row)
	return nil
}
