package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tasksync/internal/gateway"
	"tasksync/internal/model"
	"tasksync/internal/mutate"
	"tasksync/internal/store"
)

func newTestBoard(t *testing.T, tasks []model.Task, gw gateway.Gateway) (boardModel, *mutate.Engine) {
	t.Helper()
	b := NewBoard(nil)
	e := mutate.New(store.NewCollection(tasks), gw, mutate.Options{
		Notifier:     b.Notifier(),
		View:         model.View{GroupBy: model.GroupByStatus, ViewMode: model.ViewModeKanban},
		IncludeEmpty: true,
	})
	b.SetEngine(e)
	m := newModel(context.Background(), b)
	m.width = 160
	m.height = 40
	return m, e
}

func okGateway() gateway.Func {
	return gateway.Func{
		Create: func(ctx context.Context, in gateway.CreateInput) (*model.Task, error) {
			t := gateway.NewTask("srv-"+in.Title, in)
			return &t, nil
		},
		Update: func(ctx context.Context, p gateway.Patch) (*model.Task, error) {
			return &model.Task{ID: p.ID}, nil
		},
	}
}

func boardFixture() []model.Task {
	return []model.Task{
		{ID: "a", Title: "Write docs", Status: model.StatusTodo, Priority: model.PriorityHigh, Position: 1000},
		{ID: "b", Title: "Ship release", Status: model.StatusDone, Completed: true, Priority: model.PriorityLow, Position: 1000},
	}
}

func press(t *testing.T, m boardModel, keys ...string) boardModel {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(boardModel)
	}
	return m
}

func TestBoard_ViewShowsGroupsAndCards(t *testing.T) {
	m, _ := newTestBoard(t, boardFixture(), okGateway())

	out := m.View()
	for _, want := range []string{"not-started", "in-progress", "done", "Write docs", "Ship release", "group by status"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected view to contain %q, got:\n%s", want, out)
		}
	}

	m = press(t, m, "v")
	if got := m.engine().View().ViewMode; got != model.ViewModeList {
		t.Fatalf("expected list mode after v, got %q", got)
	}
	if !strings.Contains(m.View(), "Write docs") {
		t.Fatalf("expected list view to render cards")
	}
}

func TestBoard_KeyboardDragMovesTask(t *testing.T) {
	m, e := newTestBoard(t, boardFixture(), okGateway())

	m = press(t, m, " ")
	if m.mode != modeDrag {
		t.Fatalf("expected drag mode after space, got %v", m.mode)
	}
	if !strings.Contains(m.View(), "drop here") {
		t.Fatalf("expected drop marker while dragging")
	}
	m = press(t, m, "l", "enter")
	if m.mode != modeBoard {
		t.Fatalf("expected board mode after drop, got %v", m.mode)
	}
	if err := e.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	got, _ := e.Collection().Get("a")
	if got.Status != model.StatusInProgress {
		t.Fatalf("expected a in progress, got %q", got.Status)
	}
	if m.selectedID != "a" || m.col != 1 {
		t.Fatalf("expected selection to follow a into column 1, got id=%q col=%d", m.selectedID, m.col)
	}
}

func TestBoard_EscCancelsDrag(t *testing.T) {
	m, e := newTestBoard(t, boardFixture(), okGateway())

	m = press(t, m, " ", "l", "esc")
	if m.mode != modeBoard {
		t.Fatalf("expected board mode after esc, got %v", m.mode)
	}
	if _, err := e.OnDragEnd(context.Background(), "done"); !errors.Is(err, mutate.ErrNoDragInProgress) {
		t.Fatalf("expected drag to be cleared, got %v", err)
	}
	got, _ := e.Collection().Get("a")
	if got.Status != model.StatusTodo {
		t.Fatalf("expected a unchanged, got %q", got.Status)
	}
}

func TestBoard_ToggleCompletes(t *testing.T) {
	m, e := newTestBoard(t, boardFixture(), okGateway())

	m = press(t, m, "x")
	if err := e.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	got, _ := e.Collection().Get("a")
	if !got.Completed || got.Status != model.StatusDone {
		t.Fatalf("expected a done, got completed=%v status=%q", got.Completed, got.Status)
	}
	if m.selectedID != "a" {
		t.Fatalf("expected selection to stay on a, got %q", m.selectedID)
	}
}

func TestBoard_AddTaskIntoSelectedColumn(t *testing.T) {
	m, e := newTestBoard(t, boardFixture(), okGateway())

	m = press(t, m, "l", "a")
	if m.mode != modeAdd {
		t.Fatalf("expected add mode, got %v", m.mode)
	}
	m = press(t, m, "Plan", "enter")
	if err := e.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	got, ok := e.Collection().Get("srv-Plan")
	if !ok {
		t.Fatalf("expected created task srv-Plan, have %+v", e.Collection().Tasks())
	}
	if got.Status != model.StatusInProgress {
		t.Fatalf("expected new task in progress, got %q", got.Status)
	}
}

func TestBoard_FailedSaveFlashesNotice(t *testing.T) {
	gw := okGateway()
	gw.UpdatePosition = func(ctx context.Context, in gateway.PositionInput) error {
		return errors.New("backend down")
	}
	m, e := newTestBoard(t, boardFixture(), gw)

	m = press(t, m, " ", "l", "enter")
	if err := e.Wait(); err == nil {
		t.Fatalf("expected persistence error")
	}
	msg := m.waitNotice()()
	next, _ := m.Update(msg)
	m = next.(boardModel)

	if !strings.Contains(m.View(), "could not save") {
		t.Fatalf("expected flashed notice, got:\n%s", m.View())
	}
	got, _ := e.Collection().Get("a")
	if got.Status != model.StatusTodo {
		t.Fatalf("expected rollback to todo, got %q", got.Status)
	}
}

func TestNextGroupBy_Cycles(t *testing.T) {
	cur := model.GroupByStatus
	for range groupByCycle {
		cur = nextGroupBy(cur)
	}
	if cur != model.GroupByStatus {
		t.Fatalf("expected cycle back to status, got %q", cur)
	}
	if got := nextGroupBy("bogus"); got != model.GroupByStatus {
		t.Fatalf("expected unknown grouping to restart at status, got %q", got)
	}
}
