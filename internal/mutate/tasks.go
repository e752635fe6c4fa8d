package mutate

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tasksync/internal/drag"
	"tasksync/internal/gateway"
	"tasksync/internal/grouping"
	"tasksync/internal/model"
	"tasksync/internal/statusutil"
)

// TempIDPrefix marks ids assigned locally before the server confirms a task.
const TempIDPrefix = "tmp-"

// OnTaskClick selects a task for the detail view.
func (e *Engine) OnTaskClick(id string) (model.Task, error) {
	id = strings.TrimSpace(id)
	t, ok := e.coll.Get(id)
	if !ok {
		return model.Task{}, NotFoundError{Kind: "task", ID: id}
	}
	e.mu.Lock()
	e.selected = id
	e.mu.Unlock()
	return t, nil
}

func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// OnToggleComplete sets a task done or back to todo.
func (e *Engine) OnToggleComplete(ctx context.Context, id string, completed bool) (Result, error) {
	id = strings.TrimSpace(id)
	res := Result{TaskID: id}
	if err := e.checkTask(id); err != nil {
		return res, err
	}
	status := model.StatusTodo
	if completed {
		status = model.StatusDone
	}
	return e.update(ctx, txToggle, gateway.Patch{ID: id, Status: &status})
}

// EditTask applies an inline field edit.
func (e *Engine) EditTask(ctx context.Context, p gateway.Patch) (Result, error) {
	p.ID = strings.TrimSpace(p.ID)
	res := Result{TaskID: p.ID}
	if err := e.checkTask(p.ID); err != nil {
		return res, err
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return res, ErrEmptyTitle
		}
		p.Title = &title
	}
	if p.Status != nil {
		s := statusutil.NormalizeStatus(*p.Status)
		p.Status = &s
	}
	if p.Priority != nil {
		pr, err := statusutil.ParsePriority(string(*p.Priority))
		if err != nil {
			return res, err
		}
		p.Priority = &pr
	}
	// Positions follow from grouping, never from an edit.
	p.Position = nil
	return e.update(ctx, txEdit, p)
}

// update applies patch and, when the task leaves its group under the current
// grouping, appends it to the destination group.
func (e *Engine) update(ctx context.Context, kind string, patch gateway.Patch) (Result, error) {
	res := Result{TaskID: patch.ID}
	groupBy, opts := e.planning()

	a, err := e.Apply(kind, patch.ID, func(tasks []model.Task) ([]model.Task, []string, error) {
		i := indexOf(tasks, patch.ID)
		if i < 0 {
			return tasks, nil, NotFoundError{Kind: "task", ID: patch.ID}
		}
		before := tasks[i].Clone()
		gateway.ApplyPatch(&tasks[i], patch)
		if sameTask(before, tasks[i]) {
			return tasks, nil, nil
		}
		if grouping.KeyFor(before, groupBy, opts.Today) == grouping.KeyFor(tasks[i], groupBy, opts.Today) {
			return tasks, []string{patch.ID}, nil
		}
		next, changed, err := relocate(tasks, patch.ID, "", groupBy, opts)
		if err != nil {
			return tasks, nil, err
		}
		return next, append([]string{patch.ID}, changed...), nil
	})
	if err != nil || a == nil {
		return res, err
	}

	moved, _ := e.coll.Get(patch.ID)
	others := make([]gateway.PositionInput, 0, len(a.handle.Touched))
	for _, id := range a.handle.Touched {
		if id == patch.ID {
			continue
		}
		if t, ok := e.coll.Get(id); ok {
			others = append(others, gateway.PositionInput{TaskID: id, NewPosition: t.Position})
		}
	}
	if len(a.handle.Touched) > 1 || moved.Position != positionIn(a, patch.ID) {
		pos := moved.Position
		patch.Position = &pos
	}

	res.Changed = true
	res.Pending = e.persist(ctx, a, func(ctx context.Context) error {
		got, err := e.gw.UpdateTask(ctx, patch)
		if err != nil {
			return err
		}
		if got == nil {
			return gateway.ErrMalformedResponse
		}
		for _, in := range others {
			if err := e.gw.UpdateTaskPosition(ctx, in); err != nil {
				return err
			}
		}
		return nil
	})
	return res, nil
}

func positionIn(a *Applied, id string) int64 {
	for _, t := range a.handle.Snapshot.Tasks {
		if t.ID == id {
			return t.Position
		}
	}
	return 0
}

// AddContext pre-fills a new task. GroupKey is the group the task is added
// to under the current grouping and wins over the explicit fields.
type AddContext struct {
	GroupKey string
	Status   model.Status
	Priority model.Priority
	Assignee *model.Assignee
	DueDate  string
	Tags     []string
	Group    *model.GroupRef
}

// OnAddTask inserts a task under a temporary id and creates it in the
// background. The temporary id is swapped for the server id in place on
// success; on failure the task is removed.
func (e *Engine) OnAddTask(ctx context.Context, title string, in AddContext) (Result, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Result{}, ErrEmptyTitle
	}
	groupBy, opts := e.planning()

	t := model.Task{
		ID:        TempIDPrefix + uuid.NewString(),
		Title:     title,
		Status:    statusutil.NormalizeStatus(in.Status),
		Priority:  statusutil.NormalizePriority(in.Priority),
		DueDate:   strings.TrimSpace(in.DueDate),
		CreatedAt: e.now(),
	}
	if in.Assignee != nil {
		a := *in.Assignee
		t.Assignee = &a
	}
	if in.Group != nil {
		g := *in.Group
		t.Group = &g
	}
	if len(in.Tags) > 0 {
		t.Tags = append([]string{}, in.Tags...)
	}
	if key := strings.TrimSpace(in.GroupKey); key != "" {
		e.prefill(&t, groupBy, key)
	}
	t.Completed = t.Status == model.StatusDone

	a, err := e.Apply(txCreate, t.ID, func(tasks []model.Task) ([]model.Task, []string, error) {
		tasks = append(tasks, t)
		next, _, err := relocate(tasks, t.ID, "", groupBy, opts)
		if err != nil {
			return tasks, nil, err
		}
		return next, []string{t.ID}, nil
	})
	if err != nil {
		return Result{}, err
	}
	e.coll.MarkPending(t.ID)

	placed, _ := e.coll.Get(t.ID)
	input := gateway.CreateInput{
		Title:    placed.Title,
		Status:   placed.Status,
		Priority: placed.Priority,
		Assignee: placed.Assignee,
		DueDate:  placed.DueDate,
		Tags:     placed.Tags,
		Group:    placed.Group,
		Position: placed.Position,
	}
	tempID := t.ID
	res := Result{TaskID: tempID, Changed: true}
	res.Pending = e.persist(ctx, a, func(ctx context.Context) error {
		created, err := e.gw.CreateTask(ctx, input)
		if err != nil {
			return err
		}
		if created == nil || strings.TrimSpace(created.ID) == "" {
			return gateway.ErrMalformedResponse
		}
		if err := e.coll.ConfirmID(tempID, created.ID); err != nil {
			return err
		}
		a.taskID = created.ID
		return nil
	})
	return res, nil
}

func (e *Engine) prefill(t *model.Task, groupBy model.GroupBy, key string) {
	if groupBy == model.GroupByDueDate {
		today := e.now()
		if grouping.DueBucket(*t, today) == key {
			return
		}
		if days, ok := dueOffsets[key]; ok {
			t.DueDate = today.AddDate(0, 0, days).Format("2006-01-02")
		} else if key == statusutil.DueNone {
			t.DueDate = ""
		}
		return
	}
	r := drag.Resolver{Members: e.Members(), Groups: e.Groups()}
	if c, _ := r.ChangeFor(groupBy, key); c != nil {
		c.ApplyTo(t)
	}
}

// dueOffsets is a representative day offset from today for each dated bucket.
var dueOffsets = map[string]int{
	statusutil.DueOverdue:  -1,
	statusutil.DueToday:    0,
	statusutil.DueTomorrow: 1,
	statusutil.DueNext7:    2,
	statusutil.DueFuture:   8,
}

// ClearGroup archives every confirmed task of group key under the current
// grouping as one transaction. Archived tasks leave the collection.
func (e *Engine) ClearGroup(ctx context.Context, key string) (Result, error) {
	key = strings.TrimSpace(key)
	groupBy, opts := e.planning()

	pending := e.coll.PendingIDs()
	var ids []string
	a, err := e.Apply(txClearGroup, key, func(tasks []model.Task) ([]model.Task, []string, error) {
		g, ok := grouping.Project(tasks, groupBy, opts).Group(key)
		if !ok {
			return tasks, nil, NotFoundError{Kind: "group", ID: key}
		}
		drop := map[string]bool{}
		for _, t := range g.Tasks {
			if !pending[t.ID] {
				drop[t.ID] = true
				ids = append(ids, t.ID)
			}
		}
		next := tasks[:0]
		for _, t := range tasks {
			if !drop[t.ID] {
				next = append(next, t)
			}
		}
		return next, ids, nil
	})
	if err != nil || a == nil {
		return Result{TaskID: key}, err
	}

	archived := model.StatusArchived
	res := Result{TaskID: key, Changed: true}
	res.Pending = e.persist(ctx, a, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		for _, id := range ids {
			g.Go(func() error {
				got, err := e.gw.UpdateTask(ctx, gateway.Patch{ID: id, Status: &archived})
				if err != nil {
					return err
				}
				if got == nil {
					return gateway.ErrMalformedResponse
				}
				return nil
			})
		}
		return g.Wait()
	})
	return res, nil
}

func sameTask(a, b model.Task) bool {
	if a.Title != b.Title || a.Status != b.Status || a.Completed != b.Completed ||
		a.Priority != b.Priority || a.DueDate != b.DueDate || a.Position != b.Position {
		return false
	}
	if (a.Assignee == nil) != (b.Assignee == nil) {
		return false
	}
	if a.Assignee != nil && *a.Assignee != *b.Assignee {
		return false
	}
	return true
}
