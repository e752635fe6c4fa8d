// Package mutate is the optimistic mutation engine: it applies changes to the
// task collection immediately, persists them in the background and rolls them
// back when the gateway fails.
package mutate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"tasksync/internal/gateway"
	"tasksync/internal/grouping"
	"tasksync/internal/model"
	"tasksync/internal/store"
	"tasksync/internal/telemetry"
)

const (
	txReorder      = "reorder"
	txMove         = "move"
	txGroupReorder = "group-reorder"
	txToggle       = "toggle-complete"
	txEdit         = "edit"
	txCreate       = "create"
	txClearGroup   = "clear-group"
)

type Options struct {
	Logger   *slog.Logger
	Notifier Notifier
	Metrics  *telemetry.Metrics
	// Now is the clock for notices, temporary tasks and due-date buckets.
	Now func() time.Time
	// GatewayTimeout bounds each persistence call; zero means no engine timeout.
	GatewayTimeout time.Duration
	// OnSettled runs after every transaction settles, committed or rolled back.
	OnSettled func(kind, taskID string, err error)

	View         model.View
	IncludeEmpty bool
	// MemberID is the current member for the mine/team tabs.
	MemberID   string
	Members    []model.Member
	Groups     []model.Group
	GroupOrder []string
}

// Engine owns the task collection on behalf of the UI. All handlers apply
// their change synchronously and return before the gateway answers.
type Engine struct {
	coll     *store.Collection
	gw       gateway.Gateway
	log      *slog.Logger
	notifier Notifier
	metrics  *telemetry.Metrics
	now      func() time.Time
	timeout  time.Duration
	settled  func(kind, taskID string, err error)

	syncing  atomic.Int64
	inflight errgroup.Group

	mu           sync.Mutex
	view         model.View
	includeEmpty bool
	memberID     string
	members      []model.Member
	groups       []model.Group
	groupOrder   []string
	dragging     string
	selected     string
}

func New(coll *store.Collection, gw gateway.Gateway, opts Options) *Engine {
	if coll == nil {
		coll = store.NewCollection(nil)
	}
	e := &Engine{
		coll:         coll,
		gw:           gw,
		log:          opts.Logger,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		now:          opts.Now,
		timeout:      opts.GatewayTimeout,
		settled:      opts.OnSettled,
		view:         opts.View,
		includeEmpty: opts.IncludeEmpty,
		memberID:     strings.TrimSpace(opts.MemberID),
		members:      append([]model.Member(nil), opts.Members...),
		groups:       append([]model.Group(nil), opts.Groups...),
		groupOrder:   append([]string(nil), opts.GroupOrder...),
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.view.GroupBy == "" {
		e.view.GroupBy = model.GroupByStatus
	}
	if e.view.ViewMode == "" {
		e.view.ViewMode = model.ViewModeList
	}
	return e
}

func (e *Engine) Collection() *store.Collection { return e.coll }

// Syncing reports whether any transaction is still waiting on the gateway.
func (e *Engine) Syncing() bool { return e.syncing.Load() > 0 }

// Wait blocks until every in-flight persistence call has settled and returns
// the first persistence error the engine has seen.
func (e *Engine) Wait() error { return e.inflight.Wait() }

func (e *Engine) View() model.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

func (e *Engine) SetView(v model.View) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v.GroupBy == "" {
		v.GroupBy = e.view.GroupBy
	}
	if v.ViewMode == "" {
		v.ViewMode = e.view.ViewMode
	}
	e.view = v
}

func (e *Engine) Members() []model.Member {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Member(nil), e.members...)
}

func (e *Engine) SetMembers(m []model.Member) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.members = append([]model.Member(nil), m...)
}

func (e *Engine) Groups() []model.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Group(nil), e.groups...)
}

func (e *Engine) SetGroups(g []model.Group) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groups = append([]model.Group(nil), g...)
}

func (e *Engine) GroupOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gateway.NormalizeGroupOrder(e.groupOrder)
}

func (e *Engine) SetGroupOrder(order []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groupOrder = append([]string(nil), order...)
}

// Projection is the read side: the filtered collection grouped and ordered by
// the current view.
func (e *Engine) Projection() grouping.Projection {
	e.mu.Lock()
	view := e.view
	member := e.memberID
	opts := e.projectOptionsLocked()
	e.mu.Unlock()

	tasks := grouping.Filter(e.coll.Tasks(), view.Tab, member, view.Search)
	return grouping.Project(tasks, view.GroupBy, opts)
}

func (e *Engine) projectOptionsLocked() grouping.Options {
	return grouping.Options{
		GroupDefs:    append([]model.Group(nil), e.groups...),
		GroupOrder:   append([]string(nil), e.groupOrder...),
		ViewMode:     e.view.ViewMode,
		SortBy:       e.view.SortBy,
		IncludeEmpty: e.includeEmpty,
		Today:        e.now(),
	}
}

// planning returns the grouping mode and options used to plan positions. It
// ignores tab and search filters so positions stay consistent across the
// whole group.
func (e *Engine) planning() (model.GroupBy, grouping.Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.GroupBy, e.projectOptionsLocked()
}

// Apply runs m against the collection and registers the transaction as
// syncing. A mutation that touches nothing yields a nil Applied.
func (e *Engine) Apply(kind, taskID string, m store.Mutation) (*Applied, error) {
	h, err := e.coll.Apply(m)
	if err != nil {
		return nil, err
	}
	if h.Empty() {
		return nil, nil
	}
	return e.track(kind, taskID, h, nil), nil
}

func (e *Engine) track(kind, taskID string, h *store.Handle, undo func() bool) *Applied {
	e.syncing.Add(1)
	if e.metrics != nil {
		e.metrics.TransactionsApplied.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("kind", kind)))
	}
	e.log.Debug("transaction applied", "tx", kind, "task_id", taskID)
	return &Applied{e: e, kind: kind, taskID: taskID, handle: h, undo: undo}
}

// persist runs call in the background and settles a with its outcome.
func (e *Engine) persist(ctx context.Context, a *Applied, call func(ctx context.Context) error) *Pending {
	p := newPending(a.taskID)
	ctx = context.WithoutCancel(ctx)
	e.inflight.Go(func() error {
		defer close(p.done)

		ctx, span := telemetry.StartTransactionSpan(ctx, a.kind, a.taskID)
		defer span.End()
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		err := call(ctx)
		if err != nil {
			e.log.Error("gateway call failed", "tx", a.kind, "task_id", a.taskID, "err", err)
			a.Rollback(err)
			p.err = err
		} else {
			a.Commit()
			p.id = a.taskID
		}
		if e.settled != nil {
			e.settled(a.kind, p.id, err)
		}
		return err
	})
	return p
}

func (e *Engine) notify(n Notice) {
	if e.notifier != nil {
		e.notifier.Notify(n)
	}
}

func (e *Engine) checkTask(id string) error {
	id = strings.TrimSpace(id)
	if _, ok := e.coll.Get(id); !ok {
		return NotFoundError{Kind: "task", ID: id}
	}
	if e.coll.IsPending(id) {
		return ErrTaskPending
	}
	return nil
}
