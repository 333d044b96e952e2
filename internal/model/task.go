package model

import "time"

// Task represents a single item in the planner. FolderID nil means the task
// sits in the inbox.
type Task struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	Owner         string     `gorm:"index" json:"owner"`
	FolderID      *string    `gorm:"index" json:"folder_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Type          TaskType   `json:"type"`
	Status        TaskStatus `json:"status"`
	Done          bool       `json:"done"`
	Pinned        bool       `json:"pinned"`
	DueDate       *time.Time `json:"due_date"`
	Priority      Priority   `json:"priority"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	Tags          []string   `gorm:"serializer:json" json:"tags"`
	SortOrder     int        `json:"sort_order"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
