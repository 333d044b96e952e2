package model

import "time"

// Goal tracks progress toward a target amount (savings, reps, pages).
type Goal struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	Owner         string     `gorm:"index" json:"owner"`
	FolderID      *string    `gorm:"index" json:"folder_id"`
	Title         string     `json:"title"`
	TargetAmount  float64    `json:"target_amount"`
	CurrentAmount float64    `json:"current_amount"`
	Deadline      *time.Time `json:"deadline"`
	Pinned        bool       `json:"pinned"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
