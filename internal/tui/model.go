package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tasksync/internal/grouping"
	"tasksync/internal/model"
	"tasksync/internal/mutate"
)

type mode int

const (
	modeBoard mode = iota
	modeDrag
	modeAdd
	modeDetail
)

type noticeMsg mutate.Notice

type settledMsg struct{ err error }

var groupByCycle = []model.GroupBy{
	model.GroupByStatus,
	model.GroupByPriority,
	model.GroupByAssignee,
	model.GroupByCustomGroup,
	model.GroupByDueDate,
}

type boardModel struct {
	ctx   context.Context
	board *Board
	keys  keyMap
	spin  spinner.Model
	input textinput.Model

	width  int
	height int

	mode mode
	proj grouping.Projection

	// col/row is the selection; selectedID keeps it on the same task across refreshes.
	col        int
	row        int
	selectedID string

	// dropCol/dropRow is the drop slot while dragging; dropRow == len(tasks)
	// means the end of the column.
	dropCol int
	dropRow int

	detail string
	flash  string
}

func newModel(ctx context.Context, b *Board) boardModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	in := textinput.New()
	in.Placeholder = "New task title"
	in.CharLimit = 200

	m := boardModel{ctx: ctx, board: b, keys: defaultKeys(), spin: sp, input: in}
	m.refresh()
	return m
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitNotice())
}

func (m boardModel) engine() *mutate.Engine { return m.board.engine }

func (m boardModel) waitNotice() tea.Cmd {
	notices := m.board.notices
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case n := <-notices:
			return noticeMsg(n)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m boardModel) waitSettled(res mutate.Result) tea.Cmd {
	if res.Pending == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return settledMsg{err: res.Wait(ctx)}
	}
}

// refresh re-projects the collection and keeps the selection on its task.
func (m *boardModel) refresh() {
	m.proj = m.engine().Projection()
	if m.selectedID != "" {
		if key, idx, ok := m.proj.Locate(m.selectedID); ok {
			for i, g := range m.proj.Groups {
				if g.Key == key {
					m.col, m.row = i, idx
				}
			}
			return
		}
	}
	m.clamp()
}

func (m *boardModel) clamp() {
	if n := len(m.proj.Groups); m.col >= n {
		m.col = n - 1
	}
	if m.col < 0 {
		m.col = 0
	}
	tasks := m.columnTasks(m.col)
	if m.row >= len(tasks) {
		m.row = len(tasks) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
	m.selectedID = ""
	if m.row < len(tasks) {
		m.selectedID = tasks[m.row].ID
	}
}

func (m boardModel) columnTasks(col int) []model.Task {
	if col < 0 || col >= len(m.proj.Groups) {
		return nil
	}
	return m.proj.Groups[col].Tasks
}

func (m boardModel) current() (model.Task, bool) {
	tasks := m.columnTasks(m.col)
	if m.row < 0 || m.row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.row], true
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.mode != modeDrag {
			m.refresh()
		}
		return m, cmd
	case noticeMsg:
		m.flash = msg.Message
		m.refresh()
		return m, m.waitNotice()
	case settledMsg:
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeDrag:
			return m.updateDrag(msg)
		case modeAdd:
			return m.updateAdd(msg)
		case modeDetail:
			if key.Matches(msg, m.keys.Cancel, m.keys.Open, m.keys.Quit) {
				m.mode = modeBoard
				m.detail = ""
			}
			return m, nil
		default:
			return m.updateBoard(msg)
		}
	}
	return m, nil
}

func (m boardModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.engine()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.col--
		m.clamp()
	case key.Matches(msg, m.keys.Right):
		m.col++
		m.clamp()
	case key.Matches(msg, m.keys.Up):
		m.row--
		m.clamp()
	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clamp()
	case key.Matches(msg, m.keys.Grab):
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		if err := e.OnDragStart(t.ID); err != nil {
			m.flash = err.Error()
			return m, nil
		}
		m.flash = ""
		m.mode = modeDrag
		m.dropCol, m.dropRow = m.col, m.row
	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		res, err := e.OnToggleComplete(m.ctx, t.ID, !t.Completed)
		if err != nil {
			m.flash = err.Error()
			return m, nil
		}
		m.refresh()
		return m, m.waitSettled(res)
	case key.Matches(msg, m.keys.Add):
		if len(m.proj.Groups) == 0 {
			return m, nil
		}
		m.mode = modeAdd
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Open):
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		t, err := e.OnTaskClick(t.ID)
		if err != nil {
			m.flash = err.Error()
			return m, nil
		}
		out, err := RenderTaskDetail(t, m.contentWidth(), "")
		if err != nil {
			out = TaskMarkdown(t)
		}
		m.detail = out
		m.mode = modeDetail
	case key.Matches(msg, m.keys.GroupBy):
		v := e.View()
		v.GroupBy = nextGroupBy(v.GroupBy)
		e.SetView(v)
		m.refresh()
	case key.Matches(msg, m.keys.ViewMode):
		v := e.View()
		if v.ViewMode == model.ViewModeKanban {
			v.ViewMode = model.ViewModeList
		} else {
			v.ViewMode = model.ViewModeKanban
		}
		e.SetView(v)
		m.refresh()
	}
	return m, nil
}

func (m boardModel) updateDrag(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.engine()
	switch {
	case key.Matches(msg, m.keys.Cancel):
		e.OnDragCancel()
		m.mode = modeBoard
	case key.Matches(msg, m.keys.Left):
		if m.dropCol > 0 {
			m.dropCol--
			m.dropRow = len(m.columnTasks(m.dropCol))
		}
	case key.Matches(msg, m.keys.Right):
		if m.dropCol < len(m.proj.Groups)-1 {
			m.dropCol++
			m.dropRow = len(m.columnTasks(m.dropCol))
		}
	case key.Matches(msg, m.keys.Up):
		if m.dropRow > 0 {
			m.dropRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.dropRow < len(m.columnTasks(m.dropCol)) {
			m.dropRow++
		}
	case key.Matches(msg, m.keys.Drop):
		m.mode = modeBoard
		res, err := e.OnDragEnd(m.ctx, m.dropTarget())
		if err != nil {
			m.flash = err.Error()
			return m, nil
		}
		if res.Transaction.IsNoOp() && res.Transaction.Reason != "" {
			m.flash = "nothing to do: " + res.Transaction.Reason
		}
		m.refresh()
		return m, m.waitSettled(res)
	}
	return m, nil
}

// dropTarget is the task at the drop slot, or the column itself past its end.
func (m boardModel) dropTarget() string {
	if m.dropCol < 0 || m.dropCol >= len(m.proj.Groups) {
		return ""
	}
	g := m.proj.Groups[m.dropCol]
	if m.dropRow < len(g.Tasks) {
		return g.Tasks[m.dropRow].ID
	}
	return g.Key
}

func (m boardModel) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBoard
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeBoard
		m.input.Blur()
		title := strings.TrimSpace(m.input.Value())
		if title == "" || m.col >= len(m.proj.Groups) {
			return m, nil
		}
		res, err := m.engine().OnAddTask(m.ctx, title, mutate.AddContext{GroupKey: m.proj.Groups[m.col].Key})
		if err != nil {
			m.flash = err.Error()
			return m, nil
		}
		m.selectedID = res.TaskID
		m.refresh()
		return m, m.waitSettled(res)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func nextGroupBy(cur model.GroupBy) model.GroupBy {
	for i, g := range groupByCycle {
		if g == cur {
			return groupByCycle[(i+1)%len(groupByCycle)]
		}
	}
	return groupByCycle[0]
}
