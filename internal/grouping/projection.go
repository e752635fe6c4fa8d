package grouping

import (
	"strings"

	"tasksync/internal/model"
)

// Keys returns the group keys in display order.
func (p Projection) Keys() []string {
	out := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		out = append(out, g.Key)
	}
	return out
}

// Group returns the group with key.
func (p Projection) Group(key string) (Group, bool) {
	for _, g := range p.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

func (p Projection) HasKey(key string) bool {
	_, ok := p.Group(key)
	return ok
}

// Locate returns the group key and in-group index of taskID.
func (p Projection) Locate(taskID string) (key string, index int, ok bool) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return "", -1, false
	}
	for _, g := range p.Groups {
		for i, t := range g.Tasks {
			if t.ID == taskID {
				return g.Key, i, true
			}
		}
	}
	return "", -1, false
}

// TaskIDs returns the task ids of group key in display order.
func (p Projection) TaskIDs(key string) []string {
	g, ok := p.Group(key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		out = append(out, t.ID)
	}
	return out
}

// Len returns the total number of projected tasks.
func (p Projection) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Tasks)
	}
	return n
}

// Filter narrows tasks by context tab and a case-insensitive search over
// title, tags and assignee name. memberID identifies the current member.
func Filter(tasks []model.Task, tab model.ContextTab, memberID, search string) []model.Task {
	memberID = strings.TrimSpace(memberID)
	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		switch tab {
		case model.TabMine:
			if t.Assignee == nil || memberID == "" || t.Assignee.ID != memberID {
				continue
			}
		case model.TabTeam:
			if t.Assignee == nil || (memberID != "" && t.Assignee.ID == memberID) {
				continue
			}
		}
		if q != "" && !matches(t, q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t model.Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return t.Assignee != nil && strings.Contains(strings.ToLower(t.Assignee.Name), q)
}
