package deadlines

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PaulFidika/duekit/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrMissingEntityID marks an entity that cannot be keyed in the ledger.
var ErrMissingEntityID = errors.New("entity id is required")

// DefaultThresholds are the days-remaining values that trigger an alert.
var DefaultThresholds = []int{7, 3, 1}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Thresholds []int
	Category   notify.Category
	Logger     logrus.FieldLogger
	Clock      func() time.Time
	NewRunID   func() string
}

// Skip is a per-entity diagnostic for an entity left out of a pass.
type Skip struct {
	EntityID string `json:"entity_id"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// Result is the outcome of one evaluation pass.
type Result struct {
	RunID       string         `json:"run_id"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
	Events      []notify.Event `json:"events"`
	Skipped     []Skip         `json:"skipped,omitempty"`
	DryRun      bool           `json:"dry_run,omitempty"`
}

// Engine decides which deadline alerts to emit. Each (entity, threshold)
// key is emitted at most once over the lifetime of the engine's ledger.
type Engine struct {
	mu         sync.Mutex // one Evaluate in flight per engine
	ledger     Ledger
	sink       notify.Sink
	thresholds map[int]struct{}
	category   notify.Category
	log        logrus.FieldLogger
	clock      func() time.Time
	newRunID   func() string
}

// NewEngine wires an engine. A nil ledger gets a fresh MemoryLedger; a nil
// sink means events are only returned in the Result.
func NewEngine(ledger Ledger, sink notify.Sink, opts Options) *Engine {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	thresholds := opts.Thresholds
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	set := make(map[int]struct{}, len(thresholds))
	for _, t := range thresholds {
		set[t] = struct{}{}
	}
	e := &Engine{
		ledger:     ledger,
		sink:       sink,
		thresholds: set,
		category:   opts.Category,
		log:        opts.Logger,
		clock:      opts.Clock,
		newRunID:   opts.NewRunID,
	}
	if e.category == "" {
		e.category = notify.CategoryDeadline
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.newRunID == nil {
		e.newRunID = uuid.NewString
	}
	return e
}

// Thresholds returns the configured thresholds, largest first.
func (e *Engine) Thresholds() []int {
	out := make([]int, 0, len(e.thresholds))
	for t := range e.thresholds {
		out = append(out, t)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// SeverityFor maps days remaining to an alert severity.
func SeverityFor(days int) notify.Severity {
	switch {
	case days <= 1:
		return notify.SeverityError
	case days <= 3:
		return notify.SeverityWarning
	default:
		return notify.SeverityInfo
	}
}

// EvaluateNow runs Evaluate at the engine clock's current time.
func (e *Engine) EvaluateNow(ctx context.Context, entities []Entity) Result {
	return e.Evaluate(ctx, entities, e.clock())
}

// Evaluate checks every tracked entity against the thresholds as of now
// and emits one event per newly crossed (entity, threshold) key.
//
// The ledger key is committed before the sink is called, so a failed
// delivery is never re-sent by a later pass. Malformed dates and ledger
// failures skip only the affected entity. The pass always runs to the end
// of the slice; cancellation of ctx is not honoured.
func (e *Engine) Evaluate(ctx context.Context, entities []Entity, now time.Time) Result {
	ctx = context.WithoutCancel(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pass(ctx, entities, now, false)
}

// PreviewNow runs Preview at the engine clock's current time.
func (e *Engine) PreviewNow(ctx context.Context, entities []Entity) Result {
	return e.Preview(ctx, entities, e.clock())
}

// Preview reports the events Evaluate would emit for entities at now
// without claiming ledger keys or calling the sink.
func (e *Engine) Preview(ctx context.Context, entities []Entity, now time.Time) Result {
	return e.pass(context.WithoutCancel(ctx), entities, now, true)
}

func (e *Engine) pass(ctx context.Context, entities []Entity, now time.Time, dryRun bool) Result {
	res := Result{RunID: e.newRunID(), EvaluatedAt: now, Events: []notify.Event{}, DryRun: dryRun}
	log := e.log.WithField("run_id", res.RunID)

	for _, ent := range entities {
		if !ent.Tracked() {
			continue
		}
		if ent.ID == "" {
			res.Skipped = append(res.Skipped, newSkip(ent.ID, ErrMissingEntityID))
			continue
		}
		due, err := ParseDueDate(ent.DueDate, now)
		if err != nil {
			log.WithField("entity_id", ent.ID).WithError(err).Warn("skipping entity")
			res.Skipped = append(res.Skipped, newSkip(ent.ID, err))
			continue
		}
		days := DaysRemaining(due, now)
		if _, ok := e.thresholds[days]; !ok {
			continue
		}

		key := Key{EntityID: ent.ID, DaysRemaining: days}
		var claimed bool
		if dryRun {
			var seen bool
			seen, err = e.ledger.Contains(ctx, key)
			claimed = !seen
		} else {
			claimed, err = e.ledger.Claim(ctx, key)
		}
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
			log.WithField("entity_id", ent.ID).WithError(err).Error("skipping entity")
			res.Skipped = append(res.Skipped, newSkip(ent.ID, err))
			continue
		}
		if !claimed {
			continue
		}

		ev := notify.Event{
			ID:            notify.EventID(ent.ID, days),
			EntityID:      ent.ID,
			Title:         ent.Title,
			DueDateRaw:    ent.DueDate,
			DueDate:       due,
			DaysRemaining: days,
			Severity:      SeverityFor(days),
			AssignedTo:    ent.AssignedTo,
			Message:       notify.DueMessage(ent.Title, days),
			CreatedAt:     now,
		}
		if dryRun {
			res.Events = append(res.Events, ev)
			continue
		}
		if err := e.deliver(ctx, ev); err != nil {
			log.WithFields(logrus.Fields{
				"entity_id":      ent.ID,
				"days_remaining": days,
			}).WithError(err).Warn("sink delivery failed")
		}
		res.Events = append(res.Events, ev)
	}

	log.WithFields(logrus.Fields{
		"entities": len(entities),
		"emitted":  len(res.Events),
		"skipped":  len(res.Skipped),
		"dry_run":  dryRun,
	}).Debug("deadline evaluation complete")
	return res
}

func (e *Engine) deliver(ctx context.Context, ev notify.Event) (err error) {
	if e.sink == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return e.sink.Notify(ctx, ev, e.category)
}

func newSkip(entityID string, err error) Skip {
	return Skip{EntityID: entityID, Reason: err.Error(), Err: err}
}
