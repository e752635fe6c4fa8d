package statusutil

import (
	"fmt"
	"strings"

	"tasksync/internal/model"
)

// Statuses returns every status in canonical board order.
func Statuses() []model.Status {
	return []model.Status{
		model.StatusTodo,
		model.StatusInProgress,
		model.StatusReview,
		model.StatusCorrection,
		model.StatusDone,
		model.StatusArchived,
	}
}

// Label returns the display label (and status group key) for s.
// Unknown statuses are labelled as not started.
func Label(s model.Status) string {
	switch s {
	case model.StatusTodo:
		return "not-started"
	case model.StatusInProgress:
		return "in-progress"
	case model.StatusReview:
		return "review"
	case model.StatusCorrection:
		return "correction"
	case model.StatusDone:
		return "done"
	case model.StatusArchived:
		return "archived"
	default:
		return "not-started"
	}
}

// ParseLabel maps a status label back to a status. Raw status values and the
// legacy board labels are accepted as aliases.
func ParseLabel(label string) (model.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "not-started", "not started", "todo", "backlog":
		return model.StatusTodo, true
	case "in-progress", "in progress", "in_progress", "doing", "triage":
		return model.StatusInProgress, true
	case "review":
		return model.StatusReview, true
	case "correction":
		return model.StatusCorrection, true
	case "done", "finished":
		return model.StatusDone, true
	case "archived":
		return model.StatusArchived, true
	default:
		return "", false
	}
}

// NormalizeStatus maps empty or unknown statuses to todo.
func NormalizeStatus(s model.Status) model.Status {
	if IsValidStatus(s) {
		return s
	}
	if st, ok := ParseLabel(string(s)); ok {
		return st
	}
	return model.StatusTodo
}

func IsValidStatus(s model.Status) bool {
	switch s {
	case model.StatusTodo, model.StatusInProgress, model.StatusReview,
		model.StatusCorrection, model.StatusDone, model.StatusArchived:
		return true
	default:
		return false
	}
}

// StatusRank is the canonical position of s; unknown statuses rank as todo.
func StatusRank(s model.Status) int {
	s = NormalizeStatus(s)
	for i, v := range Statuses() {
		if v == s {
			return i
		}
	}
	return 0
}

// IsCompleted reports whether s is the completed state. A task's Completed
// flag must always equal IsCompleted(task.Status).
func IsCompleted(s model.Status) bool {
	return s == model.StatusDone
}

// Priorities returns every priority in canonical board order (most urgent first).
func Priorities() []model.Priority {
	return []model.Priority{
		model.PriorityUrgent,
		model.PriorityHigh,
		model.PriorityMedium,
		model.PriorityLow,
	}
}

func IsValidPriority(p model.Priority) bool {
	switch p {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent:
		return true
	default:
		return false
	}
}

// ParsePriority accepts only the four known priority values (case-insensitive).
func ParsePriority(s string) (model.Priority, error) {
	p := model.Priority(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidPriority(p) {
		return "", fmt.Errorf("invalid priority: %q", s)
	}
	return p, nil
}

// NormalizePriority maps an absent priority to medium.
func NormalizePriority(p model.Priority) model.Priority {
	if IsValidPriority(p) {
		return p
	}
	return model.PriorityMedium
}

func PriorityRank(p model.Priority) int {
	p = NormalizePriority(p)
	for i, v := range Priorities() {
		if v == p {
			return i
		}
	}
	return 0
}

// Due-date bucket keys.
const (
	DueOverdue  = "overdue"
	DueToday    = "today"
	DueTomorrow = "tomorrow"
	DueNext7    = "next-7-days"
	DueFuture   = "future"
	DueNone     = "no-date"
)

// DueBuckets returns the due-date bucket keys in temporal order.
func DueBuckets() []string {
	return []string{DueOverdue, DueToday, DueTomorrow, DueNext7, DueFuture, DueNone}
}

func ParseGroupBy(s string) (model.GroupBy, error) {
	switch g := model.GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case model.GroupByStatus, model.GroupByPriority, model.GroupByAssignee,
		model.GroupByCustomGroup, model.GroupByDueDate:
		return g, nil
	case "group", "custom":
		return model.GroupByCustomGroup, nil
	case "date", "due", "due-date":
		return model.GroupByDueDate, nil
	default:
		return "", fmt.Errorf("invalid group-by: %q", s)
	}
}

func ParseSortBy(s string) (model.SortBy, error) {
	switch v := model.SortBy(strings.ToLower(strings.TrimSpace(s))); v {
	case model.SortByNone, model.SortByStatus, model.SortByPriority, model.SortByAssignee:
		return v, nil
	case "none":
		return model.SortByNone, nil
	default:
		return "", fmt.Errorf("invalid sort-by: %q", s)
	}
}

func ParseViewMode(s string) (model.ViewMode, error) {
	switch v := model.ViewMode(strings.ToLower(strings.TrimSpace(s))); v {
	case model.ViewModeList, model.ViewModeKanban:
		return v, nil
	case "":
		return model.ViewModeList, nil
	case "board":
		return model.ViewModeKanban, nil
	default:
		return "", fmt.Errorf("invalid view mode: %q", s)
	}
}

func ParseContextTab(s string) (model.ContextTab, error) {
	switch v := model.ContextTab(strings.ToLower(strings.TrimSpace(s))); v {
	case model.TabAll, model.TabMine, model.TabTeam:
		return v, nil
	case "":
		return model.TabAll, nil
	default:
		return "", fmt.Errorf("invalid tab: %q", s)
	}
}
