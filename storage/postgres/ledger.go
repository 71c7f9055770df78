package pgstore

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulFidika/duekit/deadlines"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errNoPool = errors.New("postgres ledger: pool is not configured")

// Ledger keeps claimed (entity, threshold) keys in <schema>.deadline_notifications.
type Ledger struct {
	pg     *pgxpool.Pool
	schema string
}

func NewLedger(pg *pgxpool.Pool, schema string) *Ledger {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "duekit"
	}
	return &Ledger{pg: pg, schema: s}
}

func (l *Ledger) table() string { return l.schema + ".deadline_notifications" }

// Claim inserts the key; the primary key makes the first insert the only winner.
func (l *Ledger) Claim(ctx context.Context, k deadlines.Key) (bool, error) {
	if l.pg == nil {
		return false, errNoPool
	}
	tag, err := l.pg.Exec(ctx, `INSERT INTO `+l.table()+` (entity_id, days_remaining) VALUES ($1, $2) ON CONFLICT DO NOTHING`, k.EntityID, k.DaysRemaining)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (l *Ledger) Contains(ctx context.Context, k deadlines.Key) (bool, error) {
	if l.pg == nil {
		return false, errNoPool
	}
	var ok bool
	err := l.pg.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+l.table()+` WHERE entity_id=$1 AND days_remaining=$2)`, k.EntityID, k.DaysRemaining).Scan(&ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}
