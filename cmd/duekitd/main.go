// duekitd runs scheduled deadline passes over a task source and serves the
// permission and evaluation HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaulFidika/duekit/adapters/gin/handlers"
	"github.com/PaulFidika/duekit/config"
	"github.com/PaulFidika/duekit/deadlines"
	jwtkit "github.com/PaulFidika/duekit/jwt"
	migrations "github.com/PaulFidika/duekit/migrations/postgres"
	"github.com/PaulFidika/duekit/notify"
	"github.com/PaulFidika/duekit/permissions"
	"github.com/PaulFidika/duekit/queue"
	memorylimiter "github.com/PaulFidika/duekit/ratelimit/memory"
	redislimiter "github.com/PaulFidika/duekit/ratelimit/redis"
	"github.com/PaulFidika/duekit/scheduler"
	memorystore "github.com/PaulFidika/duekit/storage/memory"
	pgstore "github.com/PaulFidika/duekit/storage/postgres"
	redisstore "github.com/PaulFidika/duekit/storage/redis"
	"github.com/PaulFidika/duekit/tasks"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logrus.WithError(err).Fatal("duekitd exited")
	}
}

// presenceStore is what both presence backends provide.
type presenceStore interface {
	Touch(ctx context.Context, userID string) error
	IsUserOffline(ctx context.Context, userID string) (bool, error)
}

// limiter is what both rate limiters provide.
type limiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	log := logrus.New()
	log.SetLevel(cfg.Level())
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := permissions.DefaultTable()
	if cfg.GrantsFile != "" {
		if table, err = permissions.LoadFile(cfg.GrantsFile); err != nil {
			return err
		}
		log.WithField("file", cfg.GrantsFile).Info("loaded grant table")
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		if pool, err = pgxpool.New(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if cfg.Migrate {
			if err := migrations.Up(ctx, pool, log); err != nil {
				return err
			}
			if err := queue.Migrate(ctx, pool, log); err != nil {
				return err
			}
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}

	var ledger deadlines.Ledger
	switch {
	case pool != nil:
		ledger = pgstore.NewLedger(pool, "")
		log.Info("ledger: postgres")
	case rdb != nil:
		ledger = redisstore.NewLedger(rdb, "")
		log.Info("ledger: redis")
	default:
		ledger = deadlines.NewMemoryLedger()
		log.Warn("ledger: memory; notifications will repeat after restart")
	}

	var presence presenceStore
	var rl limiter
	if rdb != nil {
		presence = redisstore.NewPresence(rdb, "", 0)
		rl = redislimiter.New(rdb, map[string]redislimiter.Limit{
			notify.BucketEmail: {Limit: cfg.EmailRateLimit, Window: cfg.EmailRateWindow},
			"default":          {Limit: 120, Window: time.Minute},
		})
	} else {
		mp := memorystore.NewPresence(0)
		defer mp.Close()
		presence = mp
		rl = memorylimiter.New(map[string]memorylimiter.Limit{
			notify.BucketEmail: {Limit: cfg.EmailRateLimit, Window: cfg.EmailRateWindow},
			"default":          {Limit: 120, Window: time.Minute},
		})
	}

	router := &notify.Router{
		InApp:       notify.LogSink{Logger: log},
		Mailer:      notify.LogMailer{Logger: log},
		Presence:    presence,
		Preferences: memorystore.NewPreferences(notify.EmailPreferences{Enabled: true}),
		Limiter:     rl,
		Logger:      log,
	}

	var sink notify.Sink = router
	if pool != nil {
		client, err := queue.NewClient(pool, &queue.DeliveryWorker{Channels: router, Log: log}, cfg.QueueWorkers)
		if err != nil {
			return fmt.Errorf("river client: %w", err)
		}
		if err := client.Start(ctx); err != nil {
			return fmt.Errorf("start river: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.Stop(stopCtx); err != nil {
				log.WithError(err).Warn("river stop")
			}
		}()
		sink = queue.NewSink(client, log)
	}

	engine := deadlines.NewEngine(ledger, sink, deadlines.Options{
		Thresholds: cfg.Thresholds,
		Logger:     log,
		Clock:      func() time.Time { return time.Now().In(loc) },
	})

	var source tasks.Source = tasks.StaticSource{}
	switch {
	case cfg.TasksFile != "":
		source = tasks.FileSource{Path: cfg.TasksFile}
	case pool != nil:
		source = tasks.NewPostgresSource(pool, "")
	default:
		log.Warn("no task source configured; scheduled passes will be empty")
	}

	sched, err := scheduler.New(cfg.Schedule, loc, source, engine, log)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()
	sched.Kick(ctx)

	keys, err := jwtkit.NewGeneratedKeySource(cfg.SessionKeysDir, log)
	if err != nil {
		return err
	}
	verifier, err := jwtkit.NewVerifierFromSource(cfg.SessionIssuer, keys)
	if err != nil {
		return err
	}

	if cfg.Level() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	deps := handlers.Deps{
		Table:    table,
		Engine:   engine,
		Verifier: verifier,
		Keys:     keys,
		Presence: presence,
		Source:   source,
		Limiter:  rl,
	}
	if pool != nil {
		deps.Tasks = tasks.NewStore(pool, "")
	}
	handlers.Register(r, deps)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
