package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tasksync/internal/model"
)

// SQLiteFile is the database file name inside a workspace directory.
const SQLiteFile = "tasksync.sqlite"

// SQLite persists a workspace in a local SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the workspace database under dir.
func OpenSQLite(ctx context.Context, dir string) (*SQLite, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("missing workspace dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", filepath.Join(dir, SQLiteFile))
	if err != nil {
		return nil, err
	}
	// WAL lets the board read while a CLI process writes.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			position INTEGER NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_order ON tasks(archived, position, seq);`,
		`CREATE TABLE IF NOT EXISTS task_groups (
			id TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			json TEXT NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLite) CreateTask(ctx context.Context, in CreateInput) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, FailureError{Op: "create task", Message: "title is required"}
	}
	now := s.now().UTC()
	t := NewTask(uuid.NewString(), in)
	t.CreatedAt = now
	t.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM tasks`).Scan(&seq); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tasks(id, seq, position, archived, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
		t.ID, seq, t.Position, boolInt(t.Status == model.StatusArchived), string(b), now.UnixMilli(),
	); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLite) UpdateTask(ctx context.Context, p Patch) (*model.Task, error) {
	return s.updateTask(ctx, "update task", p.ID, func(t *model.Task) { ApplyPatch(t, p) })
}

func (s *SQLite) UpdateTaskPosition(ctx context.Context, in PositionInput) error {
	_, err := s.updateTask(ctx, "update task position", in.TaskID, func(t *model.Task) { ApplyPosition(t, in) })
	return err
}

func (s *SQLite) updateTask(ctx context.Context, op, id string, apply func(*model.Task)) (*model.Task, error) {
	id = strings.TrimSpace(id)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	if err := tx.QueryRowContext(ctx, `SELECT json FROM tasks WHERE id = ?`, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundError{Kind: "task", ID: id}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var t model.Task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", op, id, err)
	}
	apply(&t)
	now := s.now().UTC()
	t.UpdatedAt = now

	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET position = ?, archived = ?, json = ?, updated_at_unixms = ? WHERE id = ?`,
		t.Position, boolInt(t.Status == model.StatusArchived), string(b), now.UnixMilli(), id,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns non-archived tasks ordered by position, then creation order.
func (s *SQLite) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json FROM tasks WHERE archived = 0 ORDER BY position, seq`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t model.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) ListMembers(ctx context.Context) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := []model.Member{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var m model.Member
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertMember adds or replaces a workspace member. An empty id is assigned.
func (s *SQLite) UpsertMember(ctx context.Context, m model.Member) (model.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return model.Member{}, errors.New("member name is required")
	}
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}
	b, err := json.Marshal(m)
	if err != nil {
		return model.Member{}, err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO members(id, json) VALUES(?, ?)`, m.ID, string(b)); err != nil {
		return model.Member{}, fmt.Errorf("upsert member: %w", err)
	}
	return m, nil
}

func (s *SQLite) ListGroups(ctx context.Context) ([]model.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json FROM task_groups ORDER BY created_at_unixms, id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	out := []model.Group{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var g model.Group
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateGroup(ctx context.Context, name, color string) (model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Group{}, errors.New("group name is required")
	}
	g := model.Group{ID: uuid.NewString(), Name: name, Color: strings.TrimSpace(color), CreatedAt: s.now().UTC()}
	b, err := json.Marshal(g)
	if err != nil {
		return model.Group{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO task_groups(id, json, created_at_unixms) VALUES(?, ?, ?)`,
		g.ID, string(b), g.CreatedAt.UnixMilli(),
	); err != nil {
		return model.Group{}, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (s *SQLite) UpdateGroup(ctx context.Context, g model.Group) error {
	if g.ID == model.InboxKey {
		return ErrInboxImmutable
	}
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE task_groups SET json = ? WHERE id = ?`, string(b), g.ID)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: "group", ID: g.ID}
	}
	return nil
}

// DeleteGroup removes a group; its tasks fall back to the inbox.
func (s *SQLite) DeleteGroup(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == model.InboxKey {
		return ErrInboxImmutable
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM task_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: "group", ID: id}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, json FROM tasks`)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	type pending struct{ id, raw string }
	var moved []pending
	for rows.Next() {
		var tid, raw string
		if err := rows.Scan(&tid, &raw); err != nil {
			rows.Close()
			return err
		}
		var t model.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			rows.Close()
			return err
		}
		if t.Group == nil || t.Group.ID != id {
			continue
		}
		t.Group = nil
		b, err := json.Marshal(t)
		if err != nil {
			rows.Close()
			return err
		}
		moved = append(moved, pending{id: tid, raw: string(b)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, m := range moved {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET json = ? WHERE id = ?`, m.raw, m.id); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
	}

	order, err := loadGroupOrder(ctx, tx)
	if err != nil {
		return err
	}
	kept := order[:0]
	for _, k := range order {
		if k != id {
			kept = append(kept, k)
		}
	}
	if err := saveGroupOrder(ctx, tx, kept); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) LoadGroupOrder(ctx context.Context) ([]string, error) {
	return loadGroupOrder(ctx, s.db)
}

func (s *SQLite) SaveGroupOrder(ctx context.Context, order []string) error {
	return saveGroupOrder(ctx, s.db, order)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func loadGroupOrder(ctx context.Context, q queryer) ([]string, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = 'group_order'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{model.InboxKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load group order: %w", err)
	}
	var order []string
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("load group order: %w", err)
	}
	return NormalizeGroupOrder(order), nil
}

func saveGroupOrder(ctx context.Context, q queryer, order []string) error {
	b, err := json.Marshal(NormalizeGroupOrder(order))
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES('group_order', ?)`, string(b)); err != nil {
		return fmt.Errorf("save group order: %w", err)
	}
	return nil
}

// NormalizeGroupOrder dedupes ids and pins the inbox first.
func NormalizeGroupOrder(order []string) []string {
	out := []string{model.InboxKey}
	seen := map[string]bool{model.InboxKey: true}
	for _, id := range order {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
