package model_test

import (
	"testing"

	"github.com/jaekwang-park/weekplan/internal/model"
)

func TestTaskStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status model.TaskStatus
		want   bool
	}{
		{"pending", model.TaskStatusPending, true},
		{"in-progress", model.TaskStatusInProgress, true},
		{"done", model.TaskStatusDone, true},
		{"cancelled", model.TaskStatusCancelled, true},
		{"empty", model.TaskStatus(""), false},
		{"invalid", model.TaskStatus("completed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("TaskStatus(%q).IsValid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestDay_IsValid(t *testing.T) {
	tests := []struct {
		name string
		day  model.Day
		want bool
	}{
		{"this week", model.DayThisWeek, true},
		{"Mon", model.DayMon, true},
		{"Sun", model.DaySun, true},
		{"empty", model.Day(""), false},
		{"lowercase", model.Day("mon"), false},
		{"full name", model.Day("Monday"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.day.IsValid(); got != tt.want {
				t.Errorf("Day(%q).IsValid() = %v, want %v", tt.day, got, tt.want)
			}
		})
	}
}

func TestTaskPriority_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		priority model.TaskPriority
		want     bool
	}{
		{"low", model.TaskPriorityLow, true},
		{"medium", model.TaskPriorityMedium, true},
		{"high", model.TaskPriorityHigh, true},
		{"empty", model.TaskPriority(""), false},
		{"invalid", model.TaskPriority("urgent"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.priority.IsValid(); got != tt.want {
				t.Errorf("TaskPriority(%q).IsValid() = %v, want %v", tt.priority, got, tt.want)
			}
		})
	}
}

func TestDefaultCategories(t *testing.T) {
	defaults := model.DefaultCategories()
	if len(defaults) == 0 {
		t.Fatal("expected at least one default category")
	}
	for _, c := range defaults {
		if c.ID != "" {
			t.Errorf("default category %q carries a preassigned ID %q", c.Name, c.ID)
		}
		if c.Name == "" || c.Color == "" {
			t.Errorf("default category missing name or color: %+v", c)
		}
	}
}
