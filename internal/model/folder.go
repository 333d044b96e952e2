package model

import "time"

// Folder is a node in the user's organizational hierarchy. ParentID is nil
// for root folders; the parent chain must never reach the folder's own id.
// Nullable fields stay pointers without omitempty so that an explicit JSON
// null survives the wire (realtime merges rely on it).
type Folder struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	Owner     string     `gorm:"index" json:"owner"`
	ParentID  *string    `gorm:"index" json:"parent_id"`
	Title     string     `json:"title"`
	Type      FolderType `json:"type"`
	Color     *string    `json:"color"`
	Icon      *string    `json:"icon"`
	SortOrder int        `json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
