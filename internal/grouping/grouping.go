// Package grouping partitions a task collection into ordered groups.
//
// Project is pure: the same tasks, mode and options always produce the same
// partition, and every input task lands in exactly one group.
package grouping

import (
	"sort"
	"strings"
	"time"

	"tasksync/internal/model"
	"tasksync/internal/statusutil"
)

const (
	inboxTitle     = "Inbox"
	inboxColor     = "#64748b"
	untitledGroup  = "Untitled"
	unassignedName = "Unassigned"
)

type Group struct {
	Key   string       `json:"key"`
	Title string       `json:"title"`
	Color string       `json:"color,omitempty"`
	Tasks []model.Task `json:"tasks"`
}

type Projection struct {
	GroupBy model.GroupBy `json:"groupBy"`
	Groups  []Group       `json:"groups"`
}

type Options struct {
	// GroupDefs are the known custom groups. They are seeded as (possibly empty)
	// groups under custom-group mode.
	GroupDefs []model.Group
	// GroupOrder is the persisted user-chosen custom group order. Inbox is always
	// pinned first regardless of where it appears here.
	GroupOrder []string

	ViewMode model.ViewMode
	// SortBy is applied within each group in list mode only.
	SortBy model.SortBy

	// IncludeEmpty seeds every canonical key for status, priority and due-date
	// modes so empty kanban columns stay droppable.
	IncludeEmpty bool

	// Today anchors due-date buckets; zero means time.Now().
	Today time.Time
}

// SortsWithinGroups reports whether groups are displayed in SortBy order
// instead of position order.
func (o Options) SortsWithinGroups() bool {
	if o.ViewMode == model.ViewModeKanban {
		return false
	}
	switch o.SortBy {
	case model.SortByStatus, model.SortByPriority, model.SortByAssignee:
		return true
	}
	return false
}

// Project partitions tasks by groupBy.
func Project(tasks []model.Task, groupBy model.GroupBy, opts Options) Projection {
	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}

	b := newBuilder()
	switch groupBy {
	case model.GroupByCustomGroup:
		b.seed(model.InboxKey, inboxTitle, inboxColor)
		for _, g := range opts.GroupDefs {
			id := strings.TrimSpace(g.ID)
			if id == "" || id == model.InboxKey {
				continue
			}
			name := strings.TrimSpace(g.Name)
			if name == "" {
				name = untitledGroup
			}
			b.seed(id, name, g.Color)
		}
	case model.GroupByStatus:
		if opts.IncludeEmpty {
			for _, s := range statusutil.Statuses() {
				if s == model.StatusArchived {
					continue
				}
				b.seed(statusutil.Label(s), statusutil.Label(s), "")
			}
		}
	case model.GroupByPriority:
		if opts.IncludeEmpty {
			for _, p := range statusutil.Priorities() {
				b.seed(string(p), string(p), "")
			}
		}
	case model.GroupByDueDate:
		if opts.IncludeEmpty {
			for _, k := range statusutil.DueBuckets() {
				b.seed(k, k, "")
			}
		}
	}

	for _, t := range tasks {
		key := KeyFor(t, groupBy, today)
		if !b.has(key) {
			title, color := titleFor(t, groupBy, key)
			b.seed(key, title, color)
		}
		b.add(key, t)
	}

	groups := b.groups()
	orderGroups(groups, groupBy, opts.GroupOrder)

	if opts.SortsWithinGroups() {
		for i := range groups {
			SortTasks(groups[i].Tasks, opts.SortBy)
		}
	}
	return Projection{GroupBy: groupBy, Groups: groups}
}

// KeyFor derives the group key of t under groupBy.
func KeyFor(t model.Task, groupBy model.GroupBy, today time.Time) string {
	switch groupBy {
	case model.GroupByPriority:
		return string(statusutil.NormalizePriority(t.Priority))
	case model.GroupByAssignee:
		return AssigneeKey(t.Assignee)
	case model.GroupByCustomGroup:
		if t.Group == nil || strings.TrimSpace(t.Group.ID) == "" {
			return model.InboxKey
		}
		return strings.TrimSpace(t.Group.ID)
	case model.GroupByDueDate:
		return DueBucket(t, today)
	default:
		return statusutil.Label(statusutil.NormalizeStatus(t.Status))
	}
}

// AssigneeKey is the assignee display name, or the unassigned bucket.
func AssigneeKey(a *model.Assignee) string {
	if a == nil {
		return model.UnassignedKey
	}
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	if id := strings.TrimSpace(a.ID); id != "" {
		return id
	}
	return model.UnassignedKey
}

// DueBucket classifies t's due date relative to today (date-only on both sides).
// Malformed dates classify as no-date.
func DueBucket(t model.Task, today time.Time) string {
	due, ok := ParseDueDate(t.DueDate, today.Location())
	if !ok {
		return statusutil.DueNone
	}
	day := civilDate(today)
	tomorrow := day.AddDate(0, 0, 1)
	nextWeek := day.AddDate(0, 0, 7)

	switch {
	case due.Before(day):
		if !t.Completed {
			return statusutil.DueOverdue
		}
		return statusutil.DueFuture
	case due.Equal(day):
		return statusutil.DueToday
	case due.Equal(tomorrow):
		return statusutil.DueTomorrow
	case !due.After(nextWeek):
		return statusutil.DueNext7
	default:
		return statusutil.DueFuture
	}
}

// ParseDueDate parses YYYY-MM-DD or RFC 3339 values and strips the time of day.
// The returned time is midnight UTC of the calendar date in loc.
func ParseDueDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if d, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return civilDate(d), true
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return civilDate(ts.In(loc)), true
		}
	}
	return time.Time{}, false
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func titleFor(t model.Task, groupBy model.GroupBy, key string) (string, string) {
	switch groupBy {
	case model.GroupByCustomGroup:
		if key == model.InboxKey {
			return inboxTitle, inboxColor
		}
		// Unknown group id: still render it under its own key.
		if t.Group != nil && strings.TrimSpace(t.Group.Name) != "" {
			return strings.TrimSpace(t.Group.Name), t.Group.Color
		}
		if t.Group != nil {
			return untitledGroup, t.Group.Color
		}
		return untitledGroup, ""
	case model.GroupByAssignee:
		if key == model.UnassignedKey {
			return unassignedName, ""
		}
	}
	return key, ""
}

func orderGroups(groups []Group, groupBy model.GroupBy, groupOrder []string) {
	var rank func(key string) int
	switch groupBy {
	case model.GroupByStatus:
		rank = func(key string) int {
			s, ok := statusutil.ParseLabel(key)
			if !ok {
				return len(statusutil.Statuses())
			}
			return statusutil.StatusRank(s)
		}
	case model.GroupByPriority:
		rank = func(key string) int {
			p, err := statusutil.ParsePriority(key)
			if err != nil {
				return len(statusutil.Priorities())
			}
			return statusutil.PriorityRank(p)
		}
	case model.GroupByDueDate:
		order := statusutil.DueBuckets()
		rank = func(key string) int {
			for i, k := range order {
				if k == key {
					return i
				}
			}
			return len(order)
		}
	case model.GroupByCustomGroup:
		pos := map[string]int{}
		for _, id := range groupOrder {
			id = strings.TrimSpace(id)
			if id == "" || id == model.InboxKey {
				continue
			}
			if _, dup := pos[id]; !dup {
				pos[id] = len(pos) + 1
			}
		}
		rank = func(key string) int {
			if key == model.InboxKey {
				return 0
			}
			if p, ok := pos[key]; ok {
				return p
			}
			return len(pos) + 1
		}
	default:
		// Assignee groups keep first-occurrence order.
		return
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return rank(groups[i].Key) < rank(groups[j].Key)
	})
}

type builder struct {
	order []string
	byKey map[string]*Group
}

func newBuilder() *builder {
	return &builder{byKey: map[string]*Group{}}
}

func (b *builder) has(key string) bool {
	_, ok := b.byKey[key]
	return ok
}

func (b *builder) seed(key, title, color string) {
	if b.has(key) {
		return
	}
	b.order = append(b.order, key)
	b.byKey[key] = &Group{Key: key, Title: title, Color: color, Tasks: []model.Task{}}
}

func (b *builder) add(key string, t model.Task) {
	g := b.byKey[key]
	g.Tasks = append(g.Tasks, t)
}

func (b *builder) groups() []Group {
	out := make([]Group, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, *b.byKey[k])
	}
	return out
}
