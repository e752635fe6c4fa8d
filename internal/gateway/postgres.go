package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasksync/internal/model"
)

// Postgres persists a workspace in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to dsn, pings and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	p := NewPostgres(pool)
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool. The schema is assumed to exist.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, now: time.Now}
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasksync_meta (
			k TEXT PRIMARY KEY,
			v JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasksync_tasks (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			position BIGINT NOT NULL,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasksync_groups (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasksync_members (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
	}
	for _, st := range stmts {
		if _, err := p.pool.Exec(ctx, st); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CreateTask(ctx context.Context, in CreateInput) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, FailureError{Op: "create task", Message: "title is required"}
	}
	now := p.now().UTC()
	t := NewTask(uuid.NewString(), in)
	t.CreatedAt = now
	t.UpdatedAt = now
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO tasksync_tasks (id, position, archived, data, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Position, t.Status == model.StatusArchived, b, now,
	); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

func (p *Postgres) UpdateTask(ctx context.Context, patch Patch) (*model.Task, error) {
	return p.updateTask(ctx, "update task", patch.ID, func(t *model.Task) { ApplyPatch(t, patch) })
}

func (p *Postgres) UpdateTaskPosition(ctx context.Context, in PositionInput) error {
	_, err := p.updateTask(ctx, "update task position", in.TaskID, func(t *model.Task) { ApplyPosition(t, in) })
	return err
}

func (p *Postgres) updateTask(ctx context.Context, op, id string, apply func(*model.Task)) (*model.Task, error) {
	id = strings.TrimSpace(id)
	var result *model.Task
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var raw []byte
		if err := tx.QueryRow(ctx, `SELECT data FROM tasksync_tasks WHERE id = $1 FOR UPDATE`, id).Scan(&raw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return NotFoundError{Kind: "task", ID: id}
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		var t model.Task
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("%s: decode %s: %w", op, id, err)
		}
		apply(&t)
		t.UpdatedAt = p.now().UTC()
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE tasksync_tasks SET position = $1, archived = $2, data = $3, updated_at = $4 WHERE id = $5`,
			t.Position, t.Status == model.StatusArchived, b, t.UpdatedAt, id,
		); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		result = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Postgres) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM tasksync_tasks WHERE NOT archived ORDER BY position, seq`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collectJSON[model.Task](rows, "list tasks")
}

func (p *Postgres) ListMembers(ctx context.Context) ([]model.Member, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM tasksync_members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return collectJSON[model.Member](rows, "list members")
}

func (p *Postgres) UpsertMember(ctx context.Context, m model.Member) (model.Member, error) {
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
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO tasksync_members (id, data) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		m.ID, b,
	); err != nil {
		return model.Member{}, fmt.Errorf("upsert member: %w", err)
	}
	return m, nil
}

func (p *Postgres) ListGroups(ctx context.Context) ([]model.Group, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM tasksync_groups ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return collectJSON[model.Group](rows, "list groups")
}

func (p *Postgres) CreateGroup(ctx context.Context, name, color string) (model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Group{}, errors.New("group name is required")
	}
	g := model.Group{ID: uuid.NewString(), Name: name, Color: strings.TrimSpace(color), CreatedAt: p.now().UTC()}
	b, err := json.Marshal(g)
	if err != nil {
		return model.Group{}, err
	}
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO tasksync_groups (id, data, created_at) VALUES ($1, $2, $3)`, g.ID, b, g.CreatedAt,
	); err != nil {
		return model.Group{}, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (p *Postgres) UpdateGroup(ctx context.Context, g model.Group) error {
	if g.ID == model.InboxKey {
		return ErrInboxImmutable
	}
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `UPDATE tasksync_groups SET data = $1 WHERE id = $2`, b, g.ID)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Kind: "group", ID: g.ID}
	}
	return nil
}

func (p *Postgres) DeleteGroup(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == model.InboxKey {
		return ErrInboxImmutable
	}
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tasksync_groups WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return NotFoundError{Kind: "group", ID: id}
		}
		if _, err := tx.Exec(ctx,
			`UPDATE tasksync_tasks SET data = data - 'group' WHERE data->'group'->>'id' = $1`, id,
		); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		order, err := p.groupOrder(ctx, tx)
		if err != nil {
			return err
		}
		kept := make([]string, 0, len(order))
		for _, k := range order {
			if k != id {
				kept = append(kept, k)
			}
		}
		return p.saveGroupOrder(ctx, tx, kept)
	})
}

func (p *Postgres) LoadGroupOrder(ctx context.Context) ([]string, error) {
	return p.groupOrder(ctx, p.pool)
}

func (p *Postgres) SaveGroupOrder(ctx context.Context, order []string) error {
	return p.saveGroupOrder(ctx, p.pool, order)
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (p *Postgres) groupOrder(ctx context.Context, q pgQuerier) ([]string, error) {
	var raw []byte
	err := q.QueryRow(ctx, `SELECT v FROM tasksync_meta WHERE k = 'group_order'`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []string{model.InboxKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load group order: %w", err)
	}
	var order []string
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("load group order: %w", err)
	}
	return NormalizeGroupOrder(order), nil
}

func (p *Postgres) saveGroupOrder(ctx context.Context, q pgQuerier, order []string) error {
	b, err := json.Marshal(NormalizeGroupOrder(order))
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx,
		`INSERT INTO tasksync_meta (k, v) VALUES ('group_order', $1) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`, b,
	); err != nil {
		return fmt.Errorf("save group order: %w", err)
	}
	return nil
}

func collectJSON[T any](rows pgx.Rows, op string) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
