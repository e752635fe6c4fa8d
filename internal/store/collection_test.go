package store

import (
	"errors"
	"reflect"
	"testing"

	"tasksync/internal/model"
)

func seedCollection() *Collection {
	return NewCollection([]model.Task{
		{ID: "a", Title: "A", Status: model.StatusTodo, Position: 1000, Tags: []string{"x"}},
		{ID: "b", Title: "B", Status: model.StatusTodo, Position: 2000, Assignee: &model.Assignee{Name: "Ana"}},
		{ID: "c", Title: "C", Status: model.StatusDone, Completed: true, Position: 1000},
	})
}

func setStatus(id string, s model.Status) Mutation {
	return func(tasks []model.Task) ([]model.Task, []string, error) {
		for i := range tasks {
			if tasks[i].ID == id {
				tasks[i].Status = s
				tasks[i].Completed = s == model.StatusDone
				return tasks, []string{id}, nil
			}
		}
		return tasks, nil, NotFoundError{Kind: "task", ID: id}
	}
}

func TestCollection_ApplyDoesNotLeakWorkingCopy(t *testing.T) {
	c := seedCollection()
	got := c.Tasks()
	got[0].Tags[0] = "mutated"
	if tk, _ := c.Get("a"); tk.Tags[0] != "x" {
		t.Fatalf("Tasks() must return a deep copy")
	}
}

func TestCollection_RollbackRestoresExactPriorState(t *testing.T) {
	c := seedCollection()
	before := c.Tasks()

	h, err := c.Apply(setStatus("a", model.StatusDone))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if tk, _ := c.Get("a"); tk.Status != model.StatusDone {
		t.Fatalf("expected optimistic status")
	}

	res := c.Rollback(h)
	if !res.Full {
		t.Fatalf("expected full restore")
	}
	if after := c.Tasks(); !reflect.DeepEqual(before, after) {
		t.Fatalf("rollback mismatch:\nbefore=%#v\nafter=%#v", before, after)
	}
}

func TestCollection_ApplyErrorLeavesCollection(t *testing.T) {
	c := seedCollection()
	gen := c.Generation()
	if _, err := c.Apply(setStatus("nope", model.StatusDone)); err == nil {
		t.Fatalf("expected error")
	}
	if c.Generation() != gen {
		t.Fatalf("generation moved on failed apply")
	}
}

func TestCollection_ApplyRejectsDuplicateIDs(t *testing.T) {
	c := seedCollection()
	_, err := c.Apply(func(tasks []model.Task) ([]model.Task, []string, error) {
		return append(tasks, model.Task{ID: "a"}), []string{"a"}, nil
	})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID; got %v", err)
	}
}

func TestCollection_RollbackSkipsSupersededTasks(t *testing.T) {
	c := seedCollection()

	first, err := c.Apply(setStatus("a", model.StatusInProgress))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := c.Apply(setStatus("a", model.StatusDone)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	res := c.Rollback(first)
	if res.Full {
		t.Fatalf("expected selective rollback")
	}
	if len(res.Superseded) != 1 || res.Superseded[0] != "a" {
		t.Fatalf("expected a superseded; got %#v", res)
	}
	if tk, _ := c.Get("a"); tk.Status != model.StatusDone || !tk.Completed {
		t.Fatalf("newer optimistic value must survive; got %+v", tk)
	}
}

func TestCollection_RollbackRestoresUntouchedTasksAfterUnrelatedChange(t *testing.T) {
	c := seedCollection()

	first, err := c.Apply(setStatus("a", model.StatusReview))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := c.Apply(setStatus("b", model.StatusDone)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	res := c.Rollback(first)
	if res.Full || len(res.Restored) != 1 || res.Restored[0] != "a" {
		t.Fatalf("unexpected rollback result: %#v", res)
	}
	if tk, _ := c.Get("a"); tk.Status != model.StatusTodo {
		t.Fatalf("a should be restored; got %q", tk.Status)
	}
	if tk, _ := c.Get("b"); tk.Status != model.StatusDone {
		t.Fatalf("b should keep its newer value; got %q", tk.Status)
	}
}

func TestCollection_SelectiveRollbackRestoresOrderAndRemovals(t *testing.T) {
	c := seedCollection()

	// Move c to the front and drop b in one mutation.
	h, err := c.Apply(func(tasks []model.Task) ([]model.Task, []string, error) {
		return []model.Task{tasks[2], tasks[0]}, []string{"b", "c"}, nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Unrelated later mutation forces the selective path.
	if _, err := c.Apply(setStatus("a", model.StatusReview)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	c.Rollback(h)
	var ids []string
	for _, tk := range c.Tasks() {
		ids = append(ids, tk.ID)
	}
	if !reflect.DeepEqual(ids, []string{"c", "a", "b"}) {
		t.Fatalf("unexpected order after rollback: %v", ids)
	}
	if tk, ok := c.Get("b"); !ok || tk.Assignee == nil || tk.Assignee.Name != "Ana" {
		t.Fatalf("b should be reinstated; got %+v ok=%v", tk, ok)
	}
	if tk, _ := c.Get("a"); tk.Status != model.StatusReview {
		t.Fatalf("a should keep its later value")
	}
}

func TestCollection_RollbackRemovesCreatedTask(t *testing.T) {
	c := seedCollection()
	h, err := c.Apply(func(tasks []model.Task) ([]model.Task, []string, error) {
		return append(tasks, model.Task{ID: "tmp-1", Title: "new"}), []string{"tmp-1"}, nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c.MarkPending("tmp-1")
	if _, err := c.Apply(setStatus("b", model.StatusDone)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	c.Rollback(h)
	if _, ok := c.Get("tmp-1"); ok {
		t.Fatalf("expected temporary task removed")
	}
	if c.IsPending("tmp-1") {
		t.Fatalf("expected pending flag cleared")
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestCollection_ConfirmIDKeepsSlot(t *testing.T) {
	c := seedCollection()
	h, err := c.Apply(func(tasks []model.Task) ([]model.Task, []string, error) {
		out := append([]model.Task{{ID: "tmp-1"}}, tasks...)
		return out, []string{"tmp-1"}, nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c.MarkPending("tmp-1")

	if err := c.ConfirmID("tmp-1", "srv-9"); err != nil {
		t.Fatalf("ConfirmID: %v", err)
	}
	tasks := c.Tasks()
	if tasks[0].ID != "srv-9" {
		t.Fatalf("expected id replaced in place; got %q", tasks[0].ID)
	}
	if c.IsPending("srv-9") || c.IsPending("tmp-1") {
		t.Fatalf("expected no pending ids")
	}
	if c.Version("srv-9") != h.Version {
		t.Fatalf("version should follow the new id")
	}
	if err := c.ConfirmID("srv-9", "a"); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID; got %v", err)
	}
}
