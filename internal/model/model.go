package model

import "time"

// Status is the persisted workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusCorrection Status = "correction"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// GroupBy selects the dimension the projection partitions tasks by.
type GroupBy string

const (
	GroupByStatus      GroupBy = "status"
	GroupByPriority    GroupBy = "priority"
	GroupByAssignee    GroupBy = "assignee"
	GroupByCustomGroup GroupBy = "custom-group"
	GroupByDueDate     GroupBy = "due-date-bucket"
)

type ViewMode string

const (
	ViewModeList   ViewMode = "list"
	ViewModeKanban ViewMode = "kanban"
)

// SortBy is the secondary within-group order applied in list mode.
type SortBy string

const (
	SortByNone     SortBy = ""
	SortByStatus   SortBy = "status"
	SortByPriority SortBy = "priority"
	SortByAssignee SortBy = "assignee"
)

// ContextTab narrows the collection before projection.
type ContextTab string

const (
	TabAll  ContextTab = "all"
	TabMine ContextTab = "mine"
	TabTeam ContextTab = "team"
)

// Well-known group keys.
const (
	InboxKey      = "inbox"
	UnassignedKey = "unassigned"
)

type Assignee struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// GroupRef is the reference a task holds to its custom group.
type GroupRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Status    Status    `json:"status"`
	Priority  Priority  `json:"priority,omitempty"`
	Assignee  *Assignee `json:"assignee,omitempty"`
	// DueDate is kept as received (YYYY-MM-DD or RFC 3339). Unparseable values
	// project into the no-date bucket.
	DueDate  string    `json:"dueDate,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Group    *GroupRef `json:"group,omitempty"`
	Position int64     `json:"position"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of t. Pointer and slice fields are never shared
// between a snapshot and the live collection.
func (t Task) Clone() Task {
	out := t
	if t.Assignee != nil {
		a := *t.Assignee
		out.Assignee = &a
	}
	if t.Group != nil {
		g := *t.Group
		out.Group = &g
	}
	if t.Tags != nil {
		out.Tags = make([]string, len(t.Tags))
		copy(out.Tags, t.Tags)
	}
	return out
}

// Group is a user-defined bucket, orthogonal to status and priority.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Member is a workspace member an assignee group key can resolve to.
type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (m Member) Assignee() *Assignee {
	return &Assignee{ID: m.ID, Name: m.Name, Avatar: m.Avatar}
}

// View is transient UI state; it is never persisted on a task.
type View struct {
	GroupBy  GroupBy    `json:"groupBy"`
	ViewMode ViewMode   `json:"viewMode"`
	SortBy   SortBy     `json:"sortBy,omitempty"`
	Tab      ContextTab `json:"tab,omitempty"`
	Search   string     `json:"search,omitempty"`
}
