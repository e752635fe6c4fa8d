package mutate

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"tasksync/internal/drag"
	"tasksync/internal/gateway"
	"tasksync/internal/grouping"
	"tasksync/internal/model"
	"tasksync/internal/store"
)

var errBackend = errors.New("backend down")

var fixedNow = time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC)

// fakeGateway records calls and fails or blocks on demand.
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	failPosition bool
	failUpdate   bool
	failCreate   bool
	malformed    bool
	// gates, when set, block each call until releaseFor answers it.
	gates map[string]chan bool
}

func blockingGateway() *fakeGateway {
	return &fakeGateway{gates: map[string]chan bool{}}
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) gate(call string) chan bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gates == nil {
		return nil
	}
	ch, ok := g.gates[call]
	if !ok {
		ch = make(chan bool)
		g.gates[call] = ch
	}
	return ch
}

func (g *fakeGateway) wait(call string) error {
	ch := g.gate(call)
	if ch == nil {
		return nil
	}
	if ok := <-ch; !ok {
		return errBackend
	}
	return nil
}

func (g *fakeGateway) CreateTask(_ context.Context, in gateway.CreateInput) (*model.Task, error) {
	g.record("create:" + in.Title)
	if err := g.wait("create:" + in.Title); err != nil {
		return nil, err
	}
	if g.failCreate {
		return nil, gateway.FailureError{Op: "create task", Message: "nope"}
	}
	if g.malformed {
		return nil, nil
	}
	t := gateway.NewTask("srv-"+in.Title, in)
	return &t, nil
}

func (g *fakeGateway) UpdateTask(_ context.Context, p gateway.Patch) (*model.Task, error) {
	g.record("update:" + p.ID)
	if err := g.wait("update:" + p.ID); err != nil {
		return nil, err
	}
	if g.failUpdate {
		return nil, errBackend
	}
	if g.malformed {
		return nil, nil
	}
	return &model.Task{ID: p.ID}, nil
}

func (g *fakeGateway) UpdateTaskPosition(_ context.Context, in gateway.PositionInput) error {
	g.record("position:" + in.TaskID)
	if err := g.wait("position:" + in.TaskID); err != nil {
		return err
	}
	if g.failPosition {
		return gateway.FailureError{Op: "update task position"}
	}
	return nil
}

func (g *fakeGateway) SaveGroupOrder(_ context.Context, _ []string) error {
	g.record("group-order")
	if err := g.wait("group-order"); err != nil {
		return err
	}
	if g.failPosition {
		return errBackend
	}
	return nil
}

func newTestEngine(tasks []model.Task, gw gateway.Gateway, view model.View) (*Engine, *Recorder) {
	rec := &Recorder{}
	e := New(store.NewCollection(tasks), gw, Options{
		Notifier:     rec,
		Now:          func() time.Time { return fixedNow },
		View:         view,
		IncludeEmpty: true,
	})
	return e, rec
}

func statusFixture() []model.Task {
	return []model.Task{
		{ID: "a", Title: "A", Status: model.StatusTodo, Priority: model.PriorityHigh, Position: 1000},
		{ID: "b", Title: "B", Status: model.StatusDone, Completed: true, Priority: model.PriorityLow, Position: 1000},
	}
}

func drop(t *testing.T, e *Engine, active, over string) Result {
	t.Helper()
	if err := e.OnDragStart(active); err != nil {
		t.Fatalf("OnDragStart(%s): %v", active, err)
	}
	res, err := e.OnDragEnd(context.Background(), over)
	if err != nil {
		t.Fatalf("OnDragEnd(%s): %v", over, err)
	}
	return res
}

func TestDragMoveToColumn_AppliesStatusAndEndPosition(t *testing.T) {
	gw := &fakeGateway{}
	e, rec := newTestEngine(statusFixture(), gw, model.View{GroupBy: model.GroupByStatus})

	res := drop(t, e, "a", "done")
	if res.Transaction.Kind != drag.KindMove || res.Transaction.SourceKey != "not-started" ||
		res.Transaction.DestKey != "done" || res.Transaction.DestIndex != drag.End {
		t.Fatalf("unexpected transaction: %+v", res.Transaction)
	}

	a, _ := e.Collection().Get("a")
	if a.Status != model.StatusDone || !a.Completed {
		t.Fatalf("expected optimistic done; got %+v", a)
	}
	if a.Position != 2000 {
		t.Fatalf("expected end-of-done position 2000; got %d", a.Position)
	}
	if err := res.Wait(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if got := gw.Calls(); !reflect.DeepEqual(got, []string{"position:a"}) {
		t.Fatalf("calls = %v", got)
	}
	if e.Syncing() {
		t.Fatalf("syncing should clear after commit")
	}
	if len(rec.Notices()) != 0 {
		t.Fatalf("unexpected notices: %+v", rec.Notices())
	}
}

func TestDragMoveFailure_RollsBackAndNotifiesOnce(t *testing.T) {
	gw := &fakeGateway{failPosition: true}
	e, rec := newTestEngine(statusFixture(), gw, model.View{GroupBy: model.GroupByStatus})
	before := e.Collection().Tasks()

	res := drop(t, e, "a", "done")
	if err := res.Wait(context.Background()); err == nil {
		t.Fatalf("expected persistence error")
	}
	if err := e.Wait(); err == nil {
		t.Fatalf("expected Wait to report the failure")
	}

	a, _ := e.Collection().Get("a")
	if a.Status != model.StatusTodo || a.Completed {
		t.Fatalf("expected rollback to todo; got %+v", a)
	}
	if after := e.Collection().Tasks(); !reflect.DeepEqual(before, after) {
		t.Fatalf("rollback mismatch:\nbefore=%#v\nafter=%#v", before, after)
	}
	notices := rec.Notices()
	if len(notices) != 1 {
		t.Fatalf("expected exactly one notice; got %d", len(notices))
	}
	if notices[0].Kind != NoticePersistFailed || notices[0].TaskID != "a" || notices[0].Message == "" {
		t.Fatalf("unexpected notice: %+v", notices[0])
	}
	if e.Syncing() {
		t.Fatalf("syncing should clear after rollback")
	}
}

func TestDragMoveUnderPriority_ChangesOnlyPriority(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Status: model.StatusReview, Priority: model.PriorityHigh, Assignee: &model.Assignee{ID: "u1", Name: "Ana"},
			Group: &model.GroupRef{ID: "6f1d2c3b-4a59-4e8f-8a7b-9c0d1e2f3a4b"}, Position: 1000},
		{ID: "b", Priority: model.PriorityLow, Position: 1000},
	}
	e, _ := newTestEngine(tasks, &fakeGateway{}, model.View{GroupBy: model.GroupByPriority})
	before, _ := e.Collection().Get("a")

	res := drop(t, e, "a", "low")
	if err := res.Wait(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	after, _ := e.Collection().Get("a")
	if after.Priority != model.PriorityLow {
		t.Fatalf("expected low priority; got %q", after.Priority)
	}
	after.Priority = before.Priority
	after.Position = before.Position
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("move touched more than priority and position:\nbefore=%#v\nafter=%#v", before, after)
	}
}

func TestDragOntoItself_LeavesCollectionUnchanged(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(statusFixture(), gw, model.View{GroupBy: model.GroupByStatus})
	before := e.Collection().Tasks()
	gen := e.Collection().Generation()

	res := drop(t, e, "a", "a")
	if !res.Transaction.IsNoOp() || res.Changed || res.Pending != nil {
		t.Fatalf("expected noop result; got %+v", res)
	}
	if e.Collection().Generation() != gen || !reflect.DeepEqual(before, e.Collection().Tasks()) {
		t.Fatalf("collection changed")
	}
	if len(gw.Calls()) != 0 {
		t.Fatalf("unexpected gateway calls: %v", gw.Calls())
	}
}

func TestDragReorder_UpdatesPositionAndOrder(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Position: 1000},
		{ID: "x", Status: model.StatusDone, Position: 1000},
		{ID: "b", Position: 2000},
		{ID: "c", Position: 3000},
	}
	gw := &fakeGateway{}
	e, _ := newTestEngine(tasks, gw, model.View{GroupBy: model.GroupByStatus})

	res := drop(t, e, "c", "a")
	if res.Transaction.Kind != drag.KindReorder {
		t.Fatalf("expected reorder; got %+v", res.Transaction)
	}
	if err := res.Wait(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if got := e.Projection().TaskIDs("not-started"); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("group order = %v", got)
	}
	var ids []string
	for _, tk := range e.Collection().Tasks() {
		ids = append(ids, tk.ID)
	}
	if !reflect.DeepEqual(ids, []string{"c", "x", "a", "b"}) {
		t.Fatalf("other groups must keep their slots; got %v", ids)
	}
	if c, _ := e.Collection().Get("c"); c.Position != 500 {
		t.Fatalf("expected c at 500; got %d", c.Position)
	}
	if got := gw.Calls(); !reflect.DeepEqual(got, []string{"position:c"}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestDragOntoOwnHeaderWithSearch_MovesToEndOfWholeGroup(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Title: "match a", Position: 1000},
		{ID: "b", Title: "other b", Position: 2000},
		{ID: "c", Title: "match c", Position: 3000},
		{ID: "d", Title: "other d", Position: 4000},
	}
	gw := &fakeGateway{}
	e, _ := newTestEngine(tasks, gw, model.View{GroupBy: model.GroupByStatus, Search: "match"})

	if got := e.Projection().TaskIDs("not-started"); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("visible group = %v", got)
	}
	res := drop(t, e, "a", "not-started")
	if res.Transaction.Kind != drag.KindReorder || res.Transaction.NewIndex != drag.End {
		t.Fatalf("expected reorder to end; got %+v", res.Transaction)
	}
	if err := res.Wait(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if got := e.Projection().TaskIDs("not-started"); !reflect.DeepEqual(got, []string{"c", "a"}) {
		t.Fatalf("visible group after drop = %v", got)
	}
	var ids []string
	for _, tk := range e.Collection().Tasks() {
		ids = append(ids, tk.ID)
	}
	if !reflect.DeepEqual(ids, []string{"b", "c", "d", "a"}) {
		t.Fatalf("expected a at the end of the whole group; got %v", ids)
	}
	a, _ := e.Collection().Get("a")
	d, _ := e.Collection().Get("d")
	if a.Position <= d.Position {
		t.Fatalf("expected a after d; a=%d d=%d", a.Position, d.Position)
	}

	// The last visible task is already at the visible end.
	if res := drop(t, e, "a", "not-started"); !res.Transaction.IsNoOp() {
		t.Fatalf("expected noop for last visible task; got %+v", res.Transaction)
	}
}

func TestDragReorderInSortedList_IsNoOp(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Status: model.StatusTodo, Priority: model.PriorityHigh, Position: 1000},
		{ID: "b", Status: model.StatusDone, Completed: true, Priority: model.PriorityHigh, Position: 2000},
	}
	gw := &fakeGateway{}
	e, _ := newTestEngine(tasks, gw, model.View{
		GroupBy:  model.GroupByPriority,
		ViewMode: model.ViewModeList,
		SortBy:   model.SortByStatus,
	})

	res := drop(t, e, "b", "a")
	if !res.Transaction.IsNoOp() || res.Changed || res.Pending != nil {
		t.Fatalf("expected noop in sorted list; got %+v", res)
	}
	if !strings.Contains(res.Transaction.Reason, "sorted") {
		t.Fatalf("unexpected reason %q", res.Transaction.Reason)
	}
	if got := gw.Calls(); len(got) != 0 {
		t.Fatalf("expected no gateway calls; got %v", got)
	}
	if !reflect.DeepEqual(e.Collection().Tasks(), tasks) {
		t.Fatalf("collection changed: %+v", e.Collection().Tasks())
	}

	// Kanban ignores sort-by, so the same drop reorders.
	v := e.View()
	v.ViewMode = model.ViewModeKanban
	e.SetView(v)
	res = drop(t, e, "b", "a")
	if res.Transaction.Kind != drag.KindReorder {
		t.Fatalf("expected reorder in kanban; got %+v", res.Transaction)
	}
	if err := res.Wait(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if got := e.Projection().TaskIDs("high"); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("kanban order = %v", got)
	}
}

func TestDragReorderFailure_RestoresExactState(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Position: 1000},
		{ID: "b", Position: 1001},
		{ID: "c", Position: 1002},
	}
	e, rec := newTestEngine(tasks, &fakeGateway{failPosition: true}, model.View{GroupBy: model.GroupByStatus})
	before := e.Collection().Tasks()

	res := drop(t, e, "c", "b")
	_ = res.Wait(context.Background())
	if !reflect.DeepEqual(before, e.Collection().Tasks()) {
		t.Fatalf("renumbered reorder was not rolled back")
	}
	if len(rec.Notices()) != 1 {
		t.Fatalf("expected one notice; got %d", len(rec.Notices()))
	}
}

func TestConcurrentMutations_StaleRollbackDoesNotClobberNewerValue(t *testing.T) {
	gw := blockingGateway()
	e, rec := newTestEngine(statusFixture(), gw, model.View{GroupBy: model.GroupByPriority})

	move := drop(t, e, "a", "low")
	toggle, err := e.OnToggleComplete(context.Background(), "a", true)
	if err != nil {
		t.Fatalf("OnToggleComplete: %v", err)
	}
	if !e.Syncing() {
		t.Fatalf("expected syncing while calls are in flight")
	}

	// Both calls are blocked; settle the toggle first, then fail the move.
	releaseFor(t, gw, "update:a", true)
	if err := toggle.Wait(context.Background()); err != nil {
		t.Fatalf("toggle persist: %v", err)
	}
	releaseFor(t, gw, "position:a", false)
	if err := move.Wait(context.Background()); err == nil {
		t.Fatalf("expected move failure")
	}

	a, _ := e.Collection().Get("a")
	if !a.Completed || a.Status != model.StatusDone {
		t.Fatalf("later toggle must survive the stale rollback; got %+v", a)
	}
	if len(rec.Notices()) != 1 {
		t.Fatalf("expected one notice; got %d", len(rec.Notices()))
	}
}

// releaseFor waits until call has been issued, then lets it through or fails it.
func releaseFor(t *testing.T, gw *fakeGateway, call string, ok bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, c := range gw.Calls() {
			if c == call {
				gw.gate(call) <- ok
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("call %q never issued; calls=%v", call, gw.Calls())
}

func TestToggleComplete(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(statusFixture(), gw, model.View{GroupBy: model.GroupByStatus})

	res, err := e.OnToggleComplete(context.Background(), "a", true)
	if err != nil {
		t.Fatalf("OnToggleComplete: %v", err)
	}
	if err := res.Wait(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	a, _ := e.Collection().Get("a")
	if !a.Completed || a.Status != model.StatusDone || a.Position != 2000 {
		t.Fatalf("unexpected task: %+v", a)
	}

	// Same state again is not a change.
	res, err = e.OnToggleComplete(context.Background(), "a", true)
	if err != nil || res.Changed {
		t.Fatalf("expected unchanged; got %+v err=%v", res, err)
	}
	if _, err := e.OnToggleComplete(context.Background(), "nope", true); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestToggleMalformedResponse_RollsBack(t *testing.T) {
	e, rec := newTestEngine(statusFixture(), &fakeGateway{malformed: true}, model.View{GroupBy: model.GroupByStatus})
	before := e.Collection().Tasks()

	res, err := e.OnToggleComplete(context.Background(), "a", true)
	if err != nil {
		t.Fatalf("OnToggleComplete: %v", err)
	}
	if err := res.Wait(context.Background()); !errors.Is(err, gateway.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse; got %v", err)
	}
	if !reflect.DeepEqual(before, e.Collection().Tasks()) {
		t.Fatalf("expected full rollback")
	}
	if len(rec.Notices()) != 1 {
		t.Fatalf("expected one notice")
	}
}

func TestEditTask(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(statusFixture(), gw, model.View{GroupBy: model.GroupByPriority})

	title := "  Renamed "
	pr := model.PriorityUrgent
	res, err := e.EditTask(context.Background(), gateway.Patch{ID: "a", Title: &title, Priority: &pr})
	if err != nil {
		t.Fatalf("EditTask: %v", err)
	}
	if err := res.Wait(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	a, _ := e.Collection().Get("a")
	if a.Title != "Renamed" || a.Priority != model.PriorityUrgent {
		t.Fatalf("unexpected task: %+v", a)
	}

	empty := " "
	if _, err := e.EditTask(context.Background(), gateway.Patch{ID: "a", Title: &empty}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle; got %v", err)
	}
	bad := model.Priority("whenever")
	if _, err := e.EditTask(context.Background(), gateway.Patch{ID: "a", Priority: &bad}); err == nil {
		t.Fatalf("expected invalid priority error")
	}
}

func TestAddTask_ReplacesTempIDInPlace(t *testing.T) {
	gw := blockingGateway()
	e, _ := newTestEngine(statusFixture(), gw, model.View{GroupBy: model.GroupByPriority})

	res, err := e.OnAddTask(context.Background(), "Ship", AddContext{GroupKey: "urgent"})
	if err != nil {
		t.Fatalf("OnAddTask: %v", err)
	}
	if !strings.HasPrefix(res.TaskID, TempIDPrefix) {
		t.Fatalf("expected temporary id; got %q", res.TaskID)
	}
	tmp, ok := e.Collection().Get(res.TaskID)
	if !ok || tmp.Priority != model.PriorityUrgent || tmp.Status != model.StatusTodo {
		t.Fatalf("unexpected optimistic task: %+v ok=%v", tmp, ok)
	}
	if _, err := e.OnToggleComplete(context.Background(), res.TaskID, true); !errors.Is(err, ErrTaskPending) {
		t.Fatalf("expected ErrTaskPending; got %v", err)
	}
	if err := e.OnDragStart(res.TaskID); !errors.Is(err, ErrTaskPending) {
		t.Fatalf("expected ErrTaskPending on drag; got %v", err)
	}
	idx := indexOf(e.Collection().Tasks(), res.TaskID)

	releaseFor(t, gw, "create:Ship", true)
	if err := res.Wait(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if got := res.Pending.TaskID(); got != "srv-Ship" {
		t.Fatalf("expected server id; got %q", got)
	}
	tasks := e.Collection().Tasks()
	if tasks[idx].ID != "srv-Ship" {
		t.Fatalf("expected id replaced in place at %d; got %+v", idx, tasks)
	}
	if e.Collection().IsPending("srv-Ship") {
		t.Fatalf("confirmed task still pending")
	}
}

func TestAddTask_PrefillsDueDateForBucket(t *testing.T) {
	cases := []struct {
		key  string
		due  string
		want string
	}{
		{key: "overdue", want: "2025-12-19"},
		{key: "today", want: "2025-12-20"},
		{key: "tomorrow", want: "2025-12-21"},
		{key: "next-7-days", want: "2025-12-22"},
		{key: "future", want: "2025-12-28"},
		{key: "future", due: "2030-01-01", want: "2030-01-01"},
		{key: "overdue", due: "2030-01-01", want: "2025-12-19"},
		{key: "no-date", due: "2030-01-01", want: ""},
	}
	for _, tc := range cases {
		e, _ := newTestEngine(nil, &fakeGateway{}, model.View{GroupBy: model.GroupByDueDate})
		res, err := e.OnAddTask(context.Background(), "Plan", AddContext{GroupKey: tc.key, DueDate: tc.due})
		if err != nil {
			t.Fatalf("%s: OnAddTask: %v", tc.key, err)
		}
		tmp, _ := e.Collection().Get(res.TaskID)
		if tmp.DueDate != tc.want {
			t.Fatalf("%s (due %q): expected due %q; got %q", tc.key, tc.due, tc.want, tmp.DueDate)
		}
		if got := grouping.DueBucket(tmp, fixedNow); got != tc.key {
			t.Fatalf("%s: task landed in %q", tc.key, got)
		}
		if err := res.Wait(context.Background()); err != nil {
			t.Fatalf("%s: persist: %v", tc.key, err)
		}
	}
}

func TestAddTask_FailureRemovesTask(t *testing.T) {
	for _, gw := range []*fakeGateway{{failCreate: true}, {malformed: true}} {
		e, rec := newTestEngine(statusFixture(), gw, model.View{GroupBy: model.GroupByStatus})
		before := e.Collection().Tasks()

		res, err := e.OnAddTask(context.Background(), "Doomed", AddContext{})
		if err != nil {
			t.Fatalf("OnAddTask: %v", err)
		}
		if err := res.Wait(context.Background()); err == nil {
			t.Fatalf("expected create failure")
		}
		if !reflect.DeepEqual(before, e.Collection().Tasks()) {
			t.Fatalf("temporary task not removed: %+v", e.Collection().Tasks())
		}
		notices := rec.Notices()
		if len(notices) != 1 || notices[0].Kind != NoticeCreateFailed {
			t.Fatalf("unexpected notices: %+v", notices)
		}
	}
}

func TestAddTask_RejectsEmptyTitle(t *testing.T) {
	e, _ := newTestEngine(nil, &fakeGateway{}, model.View{})
	if _, err := e.OnAddTask(context.Background(), "   ", AddContext{}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle; got %v", err)
	}
}

func TestClearGroup_RollsBackAsOneTransaction(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Priority: model.PriorityLow, Position: 1000},
		{ID: "b", Priority: model.PriorityHigh, Position: 1000},
		{ID: "c", Priority: model.PriorityLow, Position: 2000},
	}
	e, rec := newTestEngine(tasks, &fakeGateway{failUpdate: true}, model.View{GroupBy: model.GroupByPriority})
	before := e.Collection().Tasks()

	res, err := e.ClearGroup(context.Background(), "low")
	if err != nil {
		t.Fatalf("ClearGroup: %v", err)
	}
	if e.Collection().Len() != 1 {
		t.Fatalf("expected optimistic removal")
	}
	_ = res.Wait(context.Background())
	if !reflect.DeepEqual(before, e.Collection().Tasks()) {
		t.Fatalf("clear group not rolled back")
	}
	if len(rec.Notices()) != 1 {
		t.Fatalf("expected one notice; got %d", len(rec.Notices()))
	}
}

func TestGroupDrag_ReordersAndRollsBack(t *testing.T) {
	g1 := model.Group{ID: "11111111-1111-4111-8111-111111111111", Name: "One"}
	g2 := model.Group{ID: "22222222-2222-4222-8222-222222222222", Name: "Two"}
	gw := &fakeGateway{}
	e, _ := newTestEngine(nil, gw, model.View{GroupBy: model.GroupByCustomGroup})
	e.SetGroups([]model.Group{g1, g2})

	res := drop(t, e, g2.ID, g1.ID)
	if res.Transaction.Kind != drag.KindGroupReorder {
		t.Fatalf("expected group reorder; got %+v", res.Transaction)
	}
	_ = res.Wait(context.Background())
	if got := e.Projection().Keys(); !reflect.DeepEqual(got, []string{model.InboxKey, g2.ID, g1.ID}) {
		t.Fatalf("keys = %v", got)
	}

	gw.failPosition = true
	res = drop(t, e, g1.ID, g2.ID)
	if err := res.Wait(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}
	if got := e.GroupOrder(); !reflect.DeepEqual(got, []string{model.InboxKey, g2.ID, g1.ID}) {
		t.Fatalf("group order not restored: %v", got)
	}
}

func TestDragEndWithoutStart(t *testing.T) {
	e, _ := newTestEngine(statusFixture(), &fakeGateway{}, model.View{})
	if _, err := e.OnDragEnd(context.Background(), "done"); !errors.Is(err, ErrNoDragInProgress) {
		t.Fatalf("expected ErrNoDragInProgress; got %v", err)
	}
	if err := e.OnDragStart("a"); err != nil {
		t.Fatalf("OnDragStart: %v", err)
	}
	e.OnDragCancel()
	if _, err := e.OnDragEnd(context.Background(), "done"); !errors.Is(err, ErrNoDragInProgress) {
		t.Fatalf("expected ErrNoDragInProgress after cancel; got %v", err)
	}
}

func TestOnTaskClick(t *testing.T) {
	e, _ := newTestEngine(statusFixture(), &fakeGateway{}, model.View{})
	tk, err := e.OnTaskClick("b")
	if err != nil || tk.ID != "b" || e.Selected() != "b" {
		t.Fatalf("unexpected: %+v err=%v selected=%q", tk, err, e.Selected())
	}
	var nf NotFoundError
	if _, err := e.OnTaskClick("zzz"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError; got %v", err)
	}
}
