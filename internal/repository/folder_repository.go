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

// FolderRepository persists folders and announces every committed change on
// the broker.
type FolderRepository struct {
	db     *gorm.DB
	events *realtime.Broker
}

func NewFolderRepository(db *gorm.DB, events *realtime.Broker) *FolderRepository {
	return &FolderRepository{db: db, events: events}
}

func (r *FolderRepository) Select(ctx context.Context, owner string) ([]model.Folder, error) {
	var folders []model.Folder
	if err := r.db.WithContext(ctx).Where("owner = ?", owner).
		Order("sort_order ASC, created_at ASC").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("select folders: %w", err)
	}
	return folders, nil
}

// Insert assigns the canonical id and timestamps; whatever id the client
// used locally is discarded.
func (r *FolderRepository) Insert(ctx context.Context, row model.Folder) (model.Folder, error) {
	now := time.Now()
	row.ID = uuid.NewString()
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Folder{}, fmt.Errorf("insert folder: %w", err)
	}
	r.events.Insert(realtime.TableFolders, row)
	return row, nil
}

func (r *FolderRepository) UpdateByID(ctx context.Context, owner, id string, fields map[string]any) (model.Folder, error) {
	db := r.db.WithContext(ctx)
	var row model.Folder
	if err := db.Where("owner = ? AND id = ?", owner, id).First(&row).Error; err != nil {
		return model.Folder{}, fmt.Errorf("find folder %s: %w", id, err)
	}
	if err := mergeFields(&row, fields); err != nil {
		return model.Folder{}, fmt.Errorf("apply folder patch: %w", err)
	}
	row.UpdatedAt = time.Now()
	if err := db.Save(&row).Error; err != nil {
		return model.Folder{}, fmt.Errorf("update folder %s: %w", id, err)
	}
	r.events.Update(realtime.TableFolders, row)
	return row, nil
}

func (r *FolderRepository) DeleteByID(ctx context.Context, owner, id string) error {
	db := r.db.WithContext(ctx)
	var row model.Folder
	err := db.Where("owner = ? AND id = ?", owner, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // already gone
	}
	if err != nil {
		return fmt.Errorf("find folder %s: %w", id, err)
	}
	if err := db.Where("owner = ? AND id = ?", owner, id).Delete(&model.Folder{}).Error; err != nil {
		return fmt.Errorf("delete folder %s: %w", id, err)
	}
	r.events.Delete(realtime.TableFolders, row)
	return nil
}
