package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tasksync/internal/gateway"
	"tasksync/internal/model"
	"tasksync/internal/mutate"
	"tasksync/internal/store"
	"tasksync/internal/telemetry"
)

// backend is what a CLI session needs from a store: the engine's gateway
// contract plus workspace loading and group/member management.
type backend interface {
	gateway.Gateway
	gateway.GroupOrderSaver
	gateway.Workspace
	gateway.GroupStore
	UpsertMember(ctx context.Context, m model.Member) (model.Member, error)
	Close() error
}

type session struct {
	backend backend
	engine  *mutate.Engine
}

func openBackend(ctx context.Context, app *App) (backend, error) {
	switch app.cfg.Store.Driver {
	case "postgres":
		pg, err := gateway.OpenPostgres(ctx, app.cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		lite, err := gateway.OpenSQLite(ctx, app.cfg.Store.Dir)
		if err != nil {
			return nil, err
		}
		return lite, nil
	}
}

// openSession loads the workspace and wires an engine over it. Rollback
// notices go to stderr.
func openSession(cmd *cobra.Command, app *App) (*session, error) {
	ctx := cmd.Context()
	b, err := openBackend(ctx, app)
	if err != nil {
		return nil, err
	}
	s := &session{backend: b}
	if err := s.init(ctx, app, mutate.NotifierFunc(func(n mutate.Notice) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s %s)\n", n.Message, n.Transaction, n.TaskID)
	})); err != nil {
		_ = b.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) init(ctx context.Context, app *App, notifier mutate.Notifier) error {
	tasks, err := s.backend.ListTasks(ctx)
	if err != nil {
		return err
	}
	members, err := s.backend.ListMembers(ctx)
	if err != nil {
		return err
	}
	groups, err := s.backend.ListGroups(ctx)
	if err != nil {
		return err
	}
	order, err := s.backend.LoadGroupOrder(ctx)
	if err != nil {
		return err
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return err
	}

	s.engine = mutate.New(store.NewCollection(tasks), gateway.Instrumented{Next: s.backend, Metrics: metrics}, mutate.Options{
		Logger:         app.log,
		Notifier:       notifier,
		Metrics:        metrics,
		GatewayTimeout: app.cfg.Engine.GatewayTimeout,
		View:           app.view(),
		IncludeEmpty:   app.cfg.View.IncludeEmpty,
		MemberID:       app.cfg.Member,
		Members:        members,
		Groups:         groups,
		GroupOrder:     order,
	})
	return nil
}

// settle waits for res to persist. A failed call has already been rolled back
// and reported by the engine.
func (s *session) settle(ctx context.Context, res mutate.Result) error {
	return res.Wait(ctx)
}

// Close waits for in-flight calls before closing the store.
func (s *session) Close() error {
	var err error
	if s.engine != nil {
		err = s.engine.Wait()
	}
	if cerr := s.backend.Close(); err == nil {
		err = cerr
	}
	return err
}
