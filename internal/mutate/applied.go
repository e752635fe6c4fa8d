package mutate

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"tasksync/internal/store"
)

// Applied is an optimistic transaction that has not settled yet. Exactly one
// of Commit or Rollback takes effect.
type Applied struct {
	e      *Engine
	kind   string
	taskID string
	handle *store.Handle
	undo   func() bool

	once   sync.Once
	result store.RollbackResult
}

func (a *Applied) Kind() string   { return a.kind }
func (a *Applied) TaskID() string { return a.taskID }

// Commit accepts the optimistic state as authoritative.
func (a *Applied) Commit() {
	a.once.Do(func() {
		a.e.syncing.Add(-1)
		a.e.log.Debug("transaction committed", "tx", a.kind, "task_id", a.taskID)
	})
}

// Rollback restores the pre-transaction state and raises one notice.
func (a *Applied) Rollback(cause error) store.RollbackResult {
	a.once.Do(func() {
		e := a.e
		if a.handle != nil {
			a.result = e.coll.Rollback(a.handle)
		}
		if a.undo != nil {
			a.undo()
		}
		e.syncing.Add(-1)

		attrs := metric.WithAttributes(attribute.String("kind", a.kind))
		if e.metrics != nil {
			e.metrics.TransactionsRolledBack.Add(context.Background(), 1, attrs)
			if n := len(a.result.Superseded); n > 0 {
				e.metrics.TransactionsSuperseded.Add(context.Background(), int64(n), attrs)
			}
		}
		e.log.Warn("transaction rolled back",
			"tx", a.kind,
			"task_id", a.taskID,
			"full", a.result.Full,
			"superseded", a.result.Superseded,
			"err", cause,
		)

		kind := NoticePersistFailed
		if a.kind == txCreate {
			kind = NoticeCreateFailed
		}
		e.notify(Notice{
			Kind:        kind,
			Transaction: a.kind,
			TaskID:      a.taskID,
			Message:     saveFailedMessage,
			Err:         cause,
			At:          e.now(),
		})
	})
	return a.result
}

// Pending tracks the asynchronous persistence of one transaction.
type Pending struct {
	done chan struct{}
	err  error
	id   string
}

func newPending(id string) *Pending {
	return &Pending{done: make(chan struct{}), id: id}
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Err is the persistence error, valid once Done is closed.
func (p *Pending) Err() error {
	<-p.done
	return p.err
}

// TaskID is the task's id after settling; for creations it is the
// server-assigned id on success.
func (p *Pending) TaskID() string {
	<-p.done
	return p.id
}

// Wait blocks until the transaction settles or ctx ends. A nil Pending is
// already settled.
func (p *Pending) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
