// Package queue delivers deadline events asynchronously through River.
// The engine hands events to Sink, which only enqueues one job per channel;
// DeliveryWorker performs the real delivery and River retries each channel
// on its own.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/PaulFidika/duekit/notify"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
	"github.com/sirupsen/logrus"
)

const (
	// Name is the River queue used for deadline deliveries.
	Name        = "deadline_delivery"
	maxAttempts = 8
)

// Channel names the delivery leg a job covers.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
)

// DeliveryArgs is the job payload for one event on one channel.
type DeliveryArgs struct {
	Event    notify.Event    `json:"event"`
	Category notify.Category `json:"category"`
	Channel  Channel         `json:"channel"`
}

func (DeliveryArgs) Kind() string { return "deadline_delivery" }

func (DeliveryArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: Name, MaxAttempts: maxAttempts}
}

// Inserter is the subset of *river.Client used by Sink.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Sink enqueues events. Returning once the job row is written is the
// acknowledgment the engine waits for.
type Sink struct {
	client Inserter
	log    logrus.FieldLogger
}

func NewSink(client Inserter, log logrus.FieldLogger) *Sink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sink{client: client, log: log}
}

// Notify implements notify.Sink. An unassigned event gets no email job.
func (s *Sink) Notify(ctx context.Context, e notify.Event, category notify.Category) error {
	channels := []Channel{ChannelInApp}
	if e.AssignedTo != "" {
		channels = append(channels, ChannelEmail)
	}
	for _, ch := range channels {
		res, err := s.client.Insert(ctx, DeliveryArgs{Event: e, Category: category, Channel: ch}, &river.InsertOpts{
			UniqueOpts: river.UniqueOpts{ByArgs: true},
		})
		if err != nil {
			return fmt.Errorf("enqueue %s delivery: %w", ch, err)
		}
		if res != nil && res.UniqueSkippedAsDuplicate {
			s.log.WithFields(logrus.Fields{"event_id": e.ID, "channel": ch}).Debug("delivery already queued")
		}
	}
	return nil
}

// Channels delivers one leg of an event; *notify.Router implements it.
type Channels interface {
	DeliverInApp(ctx context.Context, e notify.Event, category notify.Category) error
	DeliverEmail(ctx context.Context, e notify.Event, category notify.Category) error
}

// DeliveryWorker hands queued jobs to the matching channel.
type DeliveryWorker struct {
	river.WorkerDefaults[DeliveryArgs]
	Channels Channels
	Log      logrus.FieldLogger
}

func (w *DeliveryWorker) Work(ctx context.Context, job *river.Job[DeliveryArgs]) error {
	log := w.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"attempt":  job.Attempt,
		"event_id": job.Args.Event.ID,
		"channel":  job.Args.Channel,
	})
	var err error
	switch job.Args.Channel {
	case ChannelInApp:
		err = w.Channels.DeliverInApp(ctx, job.Args.Event, job.Args.Category)
	case ChannelEmail:
		if job.Attempt > 1 {
			ctx = notify.WithRetry(ctx)
		}
		err = w.Channels.DeliverEmail(ctx, job.Args.Event, job.Args.Category)
	default:
		return river.JobCancel(fmt.Errorf("unknown delivery channel %q", job.Args.Channel))
	}
	if err != nil {
		log.WithError(err).Warn("delivery attempt failed")
		return err
	}
	log.Debug("delivered")
	return nil
}

func (w *DeliveryWorker) Timeout(*river.Job[DeliveryArgs]) time.Duration { return 30 * time.Second }

// NewClient builds a River client on pool that both enqueues and works
// deliveries with the given concurrency.
func NewClient(pool *pgxpool.Pool, worker *DeliveryWorker, maxWorkers int) (*river.Client[pgx.Tx], error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, worker); err != nil {
		return nil, err
	}
	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			Name: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
}

// Migrate installs or upgrades River's own tables on pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("river migrator: %w", err)
	}
	res, err := m.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate: %w", err)
	}
	if len(res.Versions) > 0 {
		log.WithField("versions", len(res.Versions)).Info("applied river migrations")
	}
	return nil
}
