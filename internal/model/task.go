package model

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) IsValid() bool {
	return p == TaskPriorityLow || p == TaskPriorityMedium || p == TaskPriorityHigh
}

// Day is a planning bucket: one of the seven weekdays, or the "this week"
// catch-all which is distinct from all of them.
type Day string

const (
	DayThisWeek Day = "this week"
	DayMon      Day = "Mon"
	DayTue      Day = "Tue"
	DayWed      Day = "Wed"
	DayThu      Day = "Thu"
	DayFri      Day = "Fri"
	DaySat      Day = "Sat"
	DaySun      Day = "Sun"
)

// Days lists every valid bucket in display order.
var Days = []Day{DayThisWeek, DayMon, DayTue, DayWed, DayThu, DayFri, DaySat, DaySun}

func (d Day) IsValid() bool {
	for _, v := range Days {
		if d == v {
			return true
		}
	}
	return false
}

// Task is a unit of work assigned to a day bucket. Order is unique and
// contiguous (0..n-1) within a (user, day) partition.
type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id,omitempty"`
	CategoryID  string       `json:"category_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Day         Day          `json:"day"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     string       `json:"due_date,omitempty"` // 2006-01-02
	DueTime     string       `json:"due_time,omitempty"` // 15:04
	Order       int          `json:"order_index"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
