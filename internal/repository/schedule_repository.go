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

// ScheduleRepository persists schedule blocks and announces every committed
// change on the broker.
type ScheduleRepository struct {
	db     *gorm.DB
	events *realtime.Broker
}

func NewScheduleRepository(db *gorm.DB, events *realtime.Broker) *ScheduleRepository {
	return &ScheduleRepository{db: db, events: events}
}

func (r *ScheduleRepository) Select(ctx context.Context, owner string) ([]model.ScheduleBlock, error) {
	var blocks []model.ScheduleBlock
	if err := r.db.WithContext(ctx).Where("owner = ?", owner).
		Order("scheduled_date ASC, time ASC").Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("select schedule blocks: %w", err)
	}
	return blocks, nil
}

func (r *ScheduleRepository) Insert(ctx context.Context, row model.ScheduleBlock) (model.ScheduleBlock, error) {
	row.ID = uuid.NewString()
	row.CreatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.ScheduleBlock{}, fmt.Errorf("insert schedule block: %w", err)
	}
	r.events.Insert(realtime.TableScheduleBlocks, row)
	return row, nil
}

func (r *ScheduleRepository) UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.ScheduleBlock, error) {
	db := r.db.WithContext(ctx)
	var row model.ScheduleBlock
	if err := db.Where("owner = ? AND id = ?", owner, id).First(&row).Error; err != nil {
		return model.ScheduleBlock{}, fmt.Errorf("find schedule block %s: %w", id, err)
	}
	if err := mergeFields(&row, fields); err != nil {
		return model.ScheduleBlock{}, fmt.Errorf("apply schedule block patch: %w", err)
	}
	if err := db.Save(&row).Error; err != nil {
		return model.ScheduleBlock{}, fmt.Errorf("update schedule block %s: %w", id, err)
	}
	r.events.Update(realtime.TableScheduleBlocks, row)
	return row, nil
}

func (r *ScheduleRepository) DeleteByID(ctx context.Context, owner, id string) error {
	db := r.db.WithContext(ctx)
	var row model.ScheduleBlock
	err := db.Where("owner = ? AND id = ?", owner, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // already gone
	}
	if err != nil {
		return fmt.Errorf("find schedule block %s: %w", id, err)
	}
	if err := db.Where("owner = ? AND id = ?", owner, id).Delete(&model.ScheduleBlock{}).Error; err != nil {
		return fmt.Errorf("delete schedule block %s: %w", id, err)
	}
	r.events.Delete(realtime.TableScheduleBlocks, row)
	return nil
}
