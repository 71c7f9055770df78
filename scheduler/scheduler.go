// Package scheduler runs deadline evaluation passes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PaulFidika/duekit/deadlines"
	"github.com/PaulFidika/duekit/tasks"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSpec evaluates at the top of every hour.
const DefaultSpec = "0 * * * *"

// Scheduler pulls entities from a source and feeds them to an engine.
type Scheduler struct {
	cron   *cron.Cron
	source tasks.Source
	engine *deadlines.Engine
	log    logrus.FieldLogger
	kicks  sync.WaitGroup
}

// New validates spec (standard five-field cron or a descriptor such as
// "@every 15m") and registers the pass. Start must be called to run it.
func New(spec string, loc *time.Location, source tasks.Source, engine *deadlines.Engine, log logrus.FieldLogger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Scheduler{source: source, engine: engine, log: log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs a single pass. A failed source read is logged and the
// pass is abandoned; the next tick tries again.
func (s *Scheduler) RunOnce(ctx context.Context) deadlines.Result {
	entities, err := s.source.Entities(ctx)
	if err != nil {
		s.log.WithError(err).Error("load entities")
		return deadlines.Result{}
	}
	res := s.engine.EvaluateNow(ctx, entities)
	entry := s.log.WithFields(logrus.Fields{
		"run_id":   res.RunID,
		"entities": len(entities),
		"emitted":  len(res.Events),
		"skipped":  len(res.Skipped),
	})
	if len(res.Skipped) > 0 {
		entry.Warn("deadline pass finished with skipped entities")
	} else {
		entry.Info("deadline pass finished")
	}
	return res
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Kick runs a pass now in the background, outside the cron schedule.
// Stop waits for it.
func (s *Scheduler) Kick(ctx context.Context) {
	s.kicks.Add(1)
	go func() {
		defer s.kicks.Done()
		s.RunOnce(ctx)
	}()
}

// Stop halts scheduling; the returned context is done once every running
// pass, scheduled or kicked, has finished.
func (s *Scheduler) Stop() context.Context {
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.kicks.Wait()
		cancel()
	}()
	return ctx
}
