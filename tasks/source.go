// Package tasks assembles the trackable entities handed to the deadline
// engine on each pass.
package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PaulFidika/duekit/deadlines"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

// Source returns the current entity snapshot.
type Source interface {
	Entities(ctx context.Context) ([]deadlines.Entity, error)
}

// StaticSource always returns the same entities.
type StaticSource []deadlines.Entity

func (s StaticSource) Entities(context.Context) ([]deadlines.Entity, error) {
	out := make([]deadlines.Entity, len(s))
	copy(out, s)
	return out, nil
}

// FileSource reads a YAML (or JSON) list of tasks on every call, so edits
// show up on the next pass without a restart.
//
//   - id: t-100
//     title: Submit reauthorization
//     due_date: 6-May
//     status: In Progress
//     assigned_to: u-17
type FileSource struct {
	Path string
}

func (s FileSource) Entities(context.Context) ([]deadlines.Entity, error) {
	b, err := os.ReadFile(filepath.Clean(s.Path))
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}
	var out []deadlines.Entity
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode tasks file: %w", err)
	}
	return out, nil
}

// PostgresSource loads open tasks from <schema>.tasks.
type PostgresSource struct {
	pg     *pgxpool.Pool
	schema string
}

func NewPostgresSource(pg *pgxpool.Pool, schema string) *PostgresSource {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "duekit"
	}
	return &PostgresSource{pg: pg, schema: s}
}

func (s *PostgresSource) Entities(ctx context.Context) ([]deadlines.Entity, error) {
	if s.pg == nil {
		return nil, nil
	}
	rows, err := s.pg.Query(ctx, `SELECT id, title, due_date, status, assigned_to FROM `+s.schema+`.tasks WHERE status NOT IN ('Completed', 'On Hold') AND due_date <> '' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []deadlines.Entity
	for rows.Next() {
		var e deadlines.Entity
		var status string
		var assignee *string
		if err := rows.Scan(&e.ID, &e.Title, &e.DueDate, &status, &assignee); err != nil {
			return nil, err
		}
		e.Status = deadlines.Status(status)
		if assignee != nil {
			e.AssignedTo = *assignee
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
