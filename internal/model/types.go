package model

// FolderType tags a folder with the kind of content it organizes.
type FolderType string

const (
	FolderProject FolderType = "project"
	FolderNotes   FolderType = "notes"
	FolderFinance FolderType = "finance"
	FolderFitness FolderType = "fitness"
	FolderGeneric FolderType = "generic"
)

func (t FolderType) Valid() bool {
	switch t {
	case FolderProject, FolderNotes, FolderFinance, FolderFitness, FolderGeneric:
		return true
	}
	return false
}

// TaskType distinguishes plain tasks from notes and budget entries.
type TaskType string

const (
	TaskKindTask   TaskType = "task"
	TaskKindNote   TaskType = "note"
	TaskKindBudget TaskType = "budget"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskKindTask, TaskKindNote, TaskKindBudget:
		return true
	}
	return false
}

// TaskStatus tracks where a task stands.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// BlockType tags a schedule block.
type BlockType string

const (
	BlockWork  BlockType = "work"
	BlockBreak BlockType = "break"
	BlockEvent BlockType = "event"
	BlockTask  BlockType = "task"
)

func (t BlockType) Valid() bool {
	switch t {
	case BlockWork, BlockBreak, BlockEvent, BlockTask:
		return true
	}
	return false
}
