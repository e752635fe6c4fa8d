package drag

import (
	"strings"

	"github.com/google/uuid"

	"tasksync/internal/grouping"
	"tasksync/internal/model"
	"tasksync/internal/statusutil"
)

// Resolver maps drop targets back to task attributes.
type Resolver struct {
	// Members resolve assignee group keys (display name or email).
	Members []model.Member
	// Groups supply name and color for custom group destinations.
	Groups []model.Group
}

// Resolve interprets dropping activeID onto overID against p.
// overID is either a group key (a drop on a column or header) or a task id.
// Anything that cannot be mapped safely resolves to a NoOp.
func (r Resolver) Resolve(activeID, overID string, p grouping.Projection) Transaction {
	activeID = strings.TrimSpace(activeID)
	overID = strings.TrimSpace(overID)
	if activeID == "" || overID == "" {
		return NoOp("no drop target")
	}

	srcKey, srcIdx, ok := p.Locate(activeID)
	if !ok {
		return NoOp("active task not in projection")
	}

	var destKey, overTask string
	destIdx := End
	if p.HasKey(overID) {
		destKey = overID
	} else if k, i, ok := p.Locate(overID); ok {
		destKey, destIdx, overTask = k, i, overID
	} else {
		return NoOp("drop target not found")
	}

	if destKey == srcKey {
		// A drop on the own group keeps End: the projection may be filtered,
		// so the last visible index is not the end of the group.
		newIdx := destIdx
		if newIdx == srcIdx {
			return NoOp("same position")
		}
		if g, _ := p.Group(srcKey); newIdx == End && srcIdx == len(g.Tasks)-1 {
			return NoOp("same position")
		}
		return Transaction{
			Kind:       KindReorder,
			GroupBy:    p.GroupBy,
			TaskID:     activeID,
			OverTaskID: overTask,
			GroupKey:   srcKey,
			OldIndex:   srcIdx,
			NewIndex:   newIdx,
		}
	}

	change, reason := r.ChangeFor(p.GroupBy, destKey)
	if change == nil {
		return NoOp(reason)
	}
	return Transaction{
		Kind:       KindMove,
		GroupBy:    p.GroupBy,
		TaskID:     activeID,
		OverTaskID: overTask,
		SourceKey:  srcKey,
		DestKey:    destKey,
		DestIndex:  destIdx,
		Change:     change,
	}
}

// ChangeFor derives the attribute change implied by landing in group key.
// A nil change comes with the reason the key cannot be mapped.
func (r Resolver) ChangeFor(groupBy model.GroupBy, key string) (*Change, string) {
	switch groupBy {
	case model.GroupByStatus:
		s, ok := statusutil.ParseLabel(key)
		if !ok {
			return nil, "unknown status key"
		}
		return &Change{Field: groupBy, Status: s}, ""
	case model.GroupByPriority:
		p, err := statusutil.ParsePriority(key)
		if err != nil {
			return nil, "unknown priority key"
		}
		return &Change{Field: groupBy, Priority: p}, ""
	case model.GroupByAssignee:
		if key == model.UnassignedKey {
			return &Change{Field: groupBy}, ""
		}
		m, ok := r.member(key)
		if !ok {
			return nil, "unknown assignee"
		}
		return &Change{Field: groupBy, Assignee: m.Assignee()}, ""
	case model.GroupByCustomGroup:
		if key == model.InboxKey {
			return &Change{Field: groupBy}, ""
		}
		if !ValidGroupID(key) {
			return nil, "invalid group id"
		}
		ref := &model.GroupRef{ID: key}
		for _, g := range r.Groups {
			if g.ID == key {
				ref.Name = g.Name
				ref.Color = g.Color
				break
			}
		}
		return &Change{Field: groupBy, Group: ref}, ""
	case model.GroupByDueDate:
		return nil, "due-date buckets are derived"
	}
	return nil, "unsupported grouping"
}

func (r Resolver) member(key string) (model.Member, bool) {
	key = strings.TrimSpace(key)
	for _, m := range r.Members {
		if strings.EqualFold(strings.TrimSpace(m.Name), key) {
			return m, true
		}
		if m.Email != "" && strings.EqualFold(strings.TrimSpace(m.Email), key) {
			return m, true
		}
	}
	return model.Member{}, false
}

// ValidGroupID reports whether id has the canonical 8-4-4-4-12 UUID shape.
func ValidGroupID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// ResolveGroupDrag reorders custom groups. Only valid under custom-group
// grouping; inbox stays pinned first and can be neither dragged nor displaced.
func ResolveGroupDrag(activeKey, overKey string, p grouping.Projection) Transaction {
	if p.GroupBy != model.GroupByCustomGroup {
		return NoOp("group drag requires custom-group grouping")
	}
	activeKey = strings.TrimSpace(activeKey)
	overKey = strings.TrimSpace(overKey)
	if activeKey == model.InboxKey || overKey == model.InboxKey {
		return NoOp("inbox is pinned")
	}
	if !p.HasKey(activeKey) || !p.HasKey(overKey) {
		return NoOp("group not found")
	}
	if activeKey == overKey {
		return NoOp("same position")
	}

	var order []string
	from, to := -1, -1
	for _, k := range p.Keys() {
		if k == model.InboxKey {
			continue
		}
		if k == activeKey {
			from = len(order)
		}
		if k == overKey {
			to = len(order)
		}
		order = append(order, k)
	}
	order = append([]string{model.InboxKey}, ArrayMove(order, from, to)...)
	return Transaction{Kind: KindGroupReorder, GroupBy: p.GroupBy, GroupKey: activeKey, OldIndex: from, NewIndex: to, GroupOrder: order}
}
