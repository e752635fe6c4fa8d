package grouping

import (
	"sort"
	"strings"

	"tasksync/internal/model"
	"tasksync/internal/statusutil"
)

// SortTasks stable-sorts tasks in place by the list-mode secondary key.
// Ties keep their input order.
func SortTasks(tasks []model.Task, by model.SortBy) {
	var less func(a, b model.Task) bool
	switch by {
	case model.SortByStatus:
		less = func(a, b model.Task) bool {
			return statusutil.StatusRank(a.Status) < statusutil.StatusRank(b.Status)
		}
	case model.SortByPriority:
		less = func(a, b model.Task) bool {
			return statusutil.PriorityRank(a.Priority) < statusutil.PriorityRank(b.Priority)
		}
	case model.SortByAssignee:
		less = func(a, b model.Task) bool {
			return compareAssigneeNames(a.Assignee, b.Assignee) < 0
		}
	default:
		return
	}
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}

// compareAssigneeNames orders by lowercase display name; unassigned sorts last.
func compareAssigneeNames(a, b *model.Assignee) int {
	an := assigneeSortName(a)
	bn := assigneeSortName(b)
	switch {
	case an == "" && bn == "":
		return 0
	case an == "":
		return 1
	case bn == "":
		return -1
	}
	return strings.Compare(an, bn)
}

func assigneeSortName(a *model.Assignee) string {
	if a == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(a.Name))
}
