package model

import "time"

// ScheduleBlock is a timeboxed slot on the daily schedule. TaskID optionally
// links the block to a task; deleting that task deletes the block.
type ScheduleBlock struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Owner         string    `gorm:"index" json:"owner"`
	Title         string    `json:"title"`
	Time          string    `json:"time"`     // HH:MM, local
	Duration      int       `json:"duration"` // minutes
	Type          BlockType `json:"type"`
	ScheduledDate time.Time `gorm:"index" json:"scheduled_date"`
	TaskID        *string   `gorm:"index" json:"task_id"`
	CreatedAt     time.Time `json:"created_at"`
}
