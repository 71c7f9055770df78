package tasks

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulFidika/duekit/deadlines"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by Store.Get for an unknown task.
var ErrNotFound = errors.New("task not found")

// Store writes the <schema>.tasks table that PostgresSource reads.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "duekit"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) table() string { return s.schema + ".tasks" }

// Upsert inserts e or replaces every field of the task with the same ID.
func (s *Store) Upsert(ctx context.Context, e deadlines.Entity) error {
	if s.pg == nil {
		return nil
	}
	if strings.TrimSpace(e.ID) == "" {
		return deadlines.ErrMissingEntityID
	}
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.table()+` (id, title, due_date, status, assigned_to, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, due_date=EXCLUDED.due_date, status=EXCLUDED.status,
	assigned_to=EXCLUDED.assigned_to, updated_at=NOW()`,
		e.ID, e.Title, e.DueDate, string(e.Status), e.AssignedTo)
	return err
}

// SetStatus moves a task through its lifecycle, e.g. to Completed.
func (s *Store) SetStatus(ctx context.Context, id string, status deadlines.Status) error {
	if s.pg == nil {
		return nil
	}
	tag, err := s.pg.Exec(ctx, `UPDATE `+s.table()+` SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (deadlines.Entity, error) {
	if s.pg == nil {
		return deadlines.Entity{}, ErrNotFound
	}
	var e deadlines.Entity
	var status string
	var assignee *string
	err := s.pg.QueryRow(ctx, `SELECT id, title, due_date, status, assigned_to FROM `+s.table()+` WHERE id=$1`, id).
		Scan(&e.ID, &e.Title, &e.DueDate, &status, &assignee)
	if errors.Is(err, pgx.ErrNoRows) {
		return deadlines.Entity{}, ErrNotFound
	}
	if err != nil {
		return deadlines.Entity{}, err
	}
	e.Status = deadlines.Status(status)
	if assignee != nil {
		e.AssignedTo = *assignee
	}
	return e, nil
}
