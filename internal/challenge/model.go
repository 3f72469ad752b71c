package challenge

import "time"

// Progress is a member's position in the 30-day challenge.
type Progress struct {
	ID                string     `gorm:"column:id;primaryKey;size:64;not null"`
	UserID            string     `gorm:"column:user_id;size:64;not null;uniqueIndex"`
	CurrentDay        int        `gorm:"column:current_day;not null;default:1"`
	Streak            int        `gorm:"column:streak;not null;default:0"`
	LastCompletedDate string     `gorm:"column:last_completed_date;size:10;not null;default:'';index"`
	CompletedAt       *time.Time `gorm:"column:completed_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Progress) TableName() string {
	return "challenge_progress"
}

// TaskCompletion marks one task done on one calendar date.
type TaskCompletion struct {
	ID            string    `gorm:"column:id;primaryKey;size:64;not null"`
	UserID        string    `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_completion_user_task_date,priority:1"`
	TaskID        string    `gorm:"column:task_id;size:8;not null;uniqueIndex:idx_completion_user_task_date,priority:2"`
	CompletedDate string    `gorm:"column:completed_date;size:10;not null;uniqueIndex:idx_completion_user_task_date,priority:3"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TaskCompletion) TableName() string {
	return "daily_task_completions"
}

// TaskState is a task with today's completion flag.
type TaskState struct {
	Task
	Completed bool `json:"completed"`
}

// Snapshot is everything the challenge screen renders.
type Snapshot struct {
	CurrentDay        int         `json:"current_day"`
	Streak            int         `json:"streak"`
	LastCompletedDate string      `json:"last_completed_date,omitempty"`
	Today             string      `json:"today"`
	Tasks             []TaskState `json:"tasks"`
	TodayCompleted    bool        `json:"today_completed"`
	CompletedDays     []bool      `json:"completed_days"`
	WaitingForNextDay bool        `json:"waiting_for_next_day"`
	UnlocksAt         *time.Time  `json:"unlocks_at,omitempty"`
	TimeUntilMidnight string      `json:"time_until_midnight"`
}

// ToggleResult reports a task toggle and the resulting screen state.
type ToggleResult struct {
	Snapshot
	TaskID       string `json:"task_id"`
	Completed    bool   `json:"completed"`
	DayCompleted bool   `json:"day_completed"`
}
