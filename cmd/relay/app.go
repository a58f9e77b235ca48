package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"news_relay/internal/config"
	"news_relay/internal/publisher"
	"news_relay/internal/realtime"
	"news_relay/internal/scheduler"
	"news_relay/internal/server"
	"news_relay/internal/service"
	"news_relay/internal/source"
	"news_relay/internal/storage/sqlstore"
)

const shutdownTimeout = 10 * time.Second

// app holds the components shared by the serve and sync commands.
type app struct {
	db         *sqlx.DB
	contents   *sqlstore.ContentStore
	syncStates *sqlstore.SyncStateStore
	registry   *realtime.Registry
	rooms      *realtime.Rooms
	dispatcher *realtime.Dispatcher
	publisher  service.Publisher
	scheduler  *scheduler.Scheduler
	clock      clockwork.Clock
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := sqlstore.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	a := &app{
		db:         db,
		contents:   sqlstore.NewContentStore(db),
		syncStates: sqlstore.NewSyncStateStore(db),
		registry:   realtime.NewRegistry(),
		rooms:      realtime.NewRooms(),
		clock:      clockwork.NewRealClock(),
	}
	a.dispatcher = realtime.NewDispatcher(a.registry, a.rooms, a.clock, cfg.Server.Location(), logger)

	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		a.publisher = rabbitMQ
	}

	jobs, err := a.buildJobs(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.scheduler = scheduler.NewScheduler(jobs, a.clock, cfg.Server.SyncRunTimeout, logger)

	return a, nil
}

func (a *app) buildJobs(cfg *config.Config, logger *slog.Logger) ([]scheduler.Job, error) {
	tags := sqlstore.NewTagStore(a.db)
	txManager := sqlstore.NewTransactionManager(a.db)
	ts := source.NewTimestamps(a.clock, cfg.Server.Location())

	var jobs []scheduler.Job
	for _, job := range cfg.Jobs {
		if job.Disabled {
			logger.Info("job disabled, skipping", "job", job.ID)
			continue
		}

		src, err := buildSource(job, cfg.Retry, ts, logger)
		if err != nil {
			return nil, err
		}

		syncService := service.NewSyncService(
			src,
			a.contents,
			tags,
			a.syncStates,
			txManager,
			a.dispatcher,
			a.publisher,
			a.clock,
			logger,
			service.JobOptions{
				JobID:      job.ID,
				NotifyRoom: job.Room(),
				Exclusive:  job.Exclusive,
			},
		)
		jobs = append(jobs, scheduler.Job{Syncer: syncService, Interval: job.Interval})
	}
	return jobs, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	a.db.Close()
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	gateway := realtime.NewGateway(a.registry, a.rooms, a.dispatcher, logger)
	socket := realtime.NewHandler(gateway, realtime.HandlerConfig{
		SendBuffer:     cfg.Server.SendBuffer,
		ReadLimit:      cfg.Server.ReadLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	srv := server.New(server.Deps{
		Dispatcher:  a.dispatcher,
		Socket:      socket,
		Syncs:       a.scheduler,
		Contents:    a.contents,
		SyncStates:  a.syncStates,
		SyncTimeout: cfg.Server.SyncRunTimeout,
		Logger:      logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
		}
	}()

	if cfg.Server.HeartbeatInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.dispatcher.RunHeartbeat(ctx, cfg.Server.HeartbeatInterval)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(cfg.Server.Addr)
	}()

	logger.Info("starting news relay",
		"addr", cfg.Server.Addr,
		"jobs", len(a.scheduler.Status()),
		"timezone", cfg.Server.Timezone,
	)

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if err != nil {
			logger.Error("http server error", "error", err)
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("news relay stopped")
	return err
}

func runSync(ctx context.Context, cfg *config.Config, jobID string, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if jobID != "" {
		result, err := a.scheduler.Trigger(ctx, jobID)
		if err != nil {
			return err
		}
		logger.Info("sync finished", "job", jobID, "success", result.Success, "count", result.Count, "message", result.Message)
		if !result.Success {
			return fmt.Errorf("job %s: %s", jobID, result.Message)
		}
		return nil
	}

	results, total := a.scheduler.TriggerAll(ctx)
	failed := 0
	for id, result := range results {
		logger.Info("sync finished", "job", id, "success", result.Success, "count", result.Count, "message", result.Message)
		if !result.Success {
			failed++
		}
	}
	logger.Info("all jobs synced", "jobs", len(results), "total", total, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}
