package store

import (
	"sort"
	"strings"
	"sync"

	"tasksync/internal/model"
)

// Collection is the ordered in-memory task list the UI renders from.
//
// Every committed change bumps the generation and stamps the touched tasks with
// a fresh version. Rollbacks use both to decide whether a snapshot can be
// restored wholesale or only for tasks nobody has changed since.
type Collection struct {
	mu       sync.Mutex
	tasks    []model.Task
	gen      uint64
	seq      uint64
	versions map[string]uint64
	pending  map[string]bool
}

// Snapshot is a deep copy of the collection at a point in time.
type Snapshot struct {
	Tasks      []model.Task
	Generation uint64

	versions map[string]uint64
	pending  map[string]bool
}

// Mutation edits a private working copy of the collection and reports the ids
// it touched. Returning no touched ids leaves the collection as it was.
type Mutation func(tasks []model.Task) (next []model.Task, touched []string, err error)

// Handle identifies one applied mutation for a later rollback.
type Handle struct {
	Version    uint64
	Generation uint64
	Touched    []string
	Snapshot   Snapshot
}

func (h *Handle) Empty() bool { return h == nil || len(h.Touched) == 0 }

type RollbackResult struct {
	// Full is true when the snapshot was restored wholesale.
	Full       bool
	Restored   []string
	Superseded []string
}

func NewCollection(tasks []model.Task) *Collection {
	c := &Collection{versions: map[string]uint64{}, pending: map[string]bool{}}
	c.tasks = cloneTasks(tasks)
	return c
}

// Tasks returns a deep copy of the current tasks in collection order.
func (c *Collection) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTasks(c.tasks)
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

func (c *Collection) Get(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.tasks, id); i >= 0 {
		return c.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

func (c *Collection) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Version returns the version of the last applied mutation that touched id.
func (c *Collection) Version(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[id]
}

// IsPending reports whether id is a temporary task awaiting server confirmation.
func (c *Collection) IsPending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[id]
}

// PendingIDs returns the temporary ids awaiting server confirmation.
func (c *Collection) PendingIDs() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyPending(c.pending)
}

func (c *Collection) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Restore replaces the collection with s. The generation still advances.
func (c *Collection) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = cloneTasks(s.Tasks)
	c.versions = copyVersions(s.versions)
	c.pending = copyPending(s.pending)
	c.gen++
}

// Replace loads tasks as the new authoritative collection, forgetting versions.
func (c *Collection) Replace(tasks []model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = cloneTasks(tasks)
	c.versions = map[string]uint64{}
	c.pending = map[string]bool{}
	c.gen++
}

// Apply runs m against a working copy and commits the result atomically.
// The returned handle carries the pre-mutation snapshot.
func (c *Collection) Apply(m Mutation) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snapshotLocked()
	next, touched, err := m(cloneTasks(c.tasks))
	if err != nil {
		return nil, err
	}
	touched = dedupe(touched)
	if len(touched) == 0 {
		return &Handle{Generation: c.gen, Snapshot: snap}, nil
	}
	if err := checkUnique(next); err != nil {
		return nil, err
	}

	c.seq++
	c.gen++
	c.tasks = next
	for _, id := range touched {
		c.versions[id] = c.seq
	}
	return &Handle{Version: c.seq, Generation: c.gen, Touched: touched, Snapshot: snap}, nil
}

// MarkPending flags id as a temporary task awaiting creation.
func (c *Collection) MarkPending(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[id] = true
}

// ConfirmID swaps a temporary id for the server-assigned one in place.
func (c *Collection) ConfirmID(tempID, serverID string) error {
	tempID = strings.TrimSpace(tempID)
	serverID = strings.TrimSpace(serverID)
	c.mu.Lock()
	defer c.mu.Unlock()

	i := indexOf(c.tasks, tempID)
	if i < 0 {
		return NotFoundError{Kind: "task", ID: tempID}
	}
	if serverID != tempID && indexOf(c.tasks, serverID) >= 0 {
		return ErrDuplicateID
	}
	c.tasks[i].ID = serverID
	if v, ok := c.versions[tempID]; ok {
		delete(c.versions, tempID)
		c.versions[serverID] = v
	}
	delete(c.pending, tempID)
	c.gen++
	return nil
}

// Rollback undoes h.
//
// If nothing else changed the collection since h was applied, the snapshot is
// restored exactly. Otherwise only tasks whose version still belongs to h are
// reverted; tasks a later mutation has touched keep their newer value and are
// reported as superseded.
func (c *Collection) Rollback(h *Handle) RollbackResult {
	if h.Empty() {
		return RollbackResult{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen == h.Generation {
		c.tasks = cloneTasks(h.Snapshot.Tasks)
		c.versions = copyVersions(h.Snapshot.versions)
		c.pending = copyPending(h.Snapshot.pending)
		c.gen++
		return RollbackResult{Full: true, Restored: append([]string(nil), h.Touched...)}
	}

	var res RollbackResult
	restore := map[string]bool{}
	for _, id := range h.Touched {
		if c.versions[id] != h.Version {
			res.Superseded = append(res.Superseded, id)
			continue
		}
		restore[id] = true
		res.Restored = append(res.Restored, id)
	}
	if len(restore) == 0 {
		return res
	}

	snapIdx := map[string]int{}
	for i, t := range h.Snapshot.Tasks {
		if restore[t.ID] {
			snapIdx[t.ID] = i
		}
	}

	// Drop tasks the mutation created, and reinstate snapshot values into the
	// slots the restored tasks occupy now, keeping their snapshot order.
	next := make([]model.Task, 0, len(c.tasks))
	var slots []int
	present := map[string]bool{}
	for _, t := range c.tasks {
		if !restore[t.ID] {
			next = append(next, t)
			continue
		}
		if _, existed := snapIdx[t.ID]; !existed {
			continue
		}
		present[t.ID] = true
		slots = append(slots, len(next))
		next = append(next, t)
	}
	var inPlace, missing []string
	for id := range snapIdx {
		if present[id] {
			inPlace = append(inPlace, id)
		} else {
			missing = append(missing, id)
		}
	}
	bySnap := func(ids []string) {
		sort.Slice(ids, func(i, j int) bool { return snapIdx[ids[i]] < snapIdx[ids[j]] })
	}
	bySnap(inPlace)
	bySnap(missing)
	for i, id := range inPlace {
		next[slots[i]] = h.Snapshot.Tasks[snapIdx[id]].Clone()
	}
	for _, id := range missing {
		// Reinsert after the nearest snapshot predecessor still present.
		at := 0
		for j := snapIdx[id] - 1; j >= 0; j-- {
			if k := indexOf(next, h.Snapshot.Tasks[j].ID); k >= 0 {
				at = k + 1
				break
			}
		}
		next = append(next, model.Task{})
		copy(next[at+1:], next[at:])
		next[at] = h.Snapshot.Tasks[snapIdx[id]].Clone()
	}

	for id := range restore {
		if v, ok := h.Snapshot.versions[id]; ok {
			c.versions[id] = v
		} else {
			delete(c.versions, id)
		}
		if h.Snapshot.pending[id] {
			c.pending[id] = true
		} else {
			delete(c.pending, id)
		}
	}
	c.tasks = next
	c.gen++
	return res
}

func (c *Collection) snapshotLocked() Snapshot {
	return Snapshot{
		Tasks:      cloneTasks(c.tasks),
		Generation: c.gen,
		versions:   copyVersions(c.versions),
		pending:    copyPending(c.pending),
	}
}

func cloneTasks(in []model.Task) []model.Task {
	if in == nil {
		return []model.Task{}
	}
	out := make([]model.Task, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func copyVersions(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyPending(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func checkUnique(tasks []model.Task) error {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return ErrDuplicateID
		}
		seen[t.ID] = true
	}
	return nil
}
