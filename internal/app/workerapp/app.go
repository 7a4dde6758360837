package workerapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/config"
	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
	"github.com/ivankudzin/plutonic/backend/internal/infra/metrics"
	tginfra "github.com/ivankudzin/plutonic/backend/internal/infra/telegram"
	"github.com/ivankudzin/plutonic/backend/internal/jobs/cleanup"
	pgrepo "github.com/ivankudzin/plutonic/backend/internal/repo/postgres"
	redrepo "github.com/ivankudzin/plutonic/backend/internal/repo/redis"
	pushsvc "github.com/ivankudzin/plutonic/backend/internal/services/push"
)

// Job is a unit of scheduled maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type changeSource interface {
	Run(ctx context.Context, handle pgrepo.ChangeHandler) error
}

type changePublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type pushFanout interface {
	HandleEvent(ctx context.Context, event events.Event) error
}

// App is the single worker process. It owns the only Postgres change
// listener, forwards every change to the per-user Redis channels, fans
// notifications out to push devices and runs scheduled cleanup.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client

	listener  changeSource
	publisher changePublisher
	push      pushFanout
	jobs      map[string]Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for worker: %w", err)
	}

	redisClient, err := redrepo.NewClient(ctx, redrepo.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis for worker: %w", err)
	}

	tokenRepo := pgrepo.NewDeviceTokenRepo(pool)

	var sender pushsvc.TelegramSender
	if strings.TrimSpace(cfg.Push.TelegramToken) != "" {
		bot, err := tginfra.NewBot(cfg.Push.TelegramToken, 10*time.Second)
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
		sender = bot
	} else {
		logger.Warn("PUSH_TELEGRAM_TOKEN is empty, push delivery disabled")
	}

	pushService := pushsvc.NewService(tokenRepo, sender, logger, pushsvc.Config{
		RatePerSecond: cfg.Push.RatePerSecond,
		Burst:         cfg.Push.Burst,
		LinkBaseURL:   cfg.Push.LinkBaseURL,
	})
	tokenJob := cleanup.NewDeviceTokenJob(tokenRepo, cfg.Worker.DeviceTokenMaxAge, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		postgres:  pool,
		redis:     redisClient,
		listener:  pgrepo.NewChangeListener(pool, cfg.Postgres.ChangeChannel, logger),
		publisher: redrepo.NewChangeBus(redisClient, logger),
		push:      pushService,
		jobs: map[string]Job{
			cfg.Worker.DeviceTokenPruneSpec: tokenJob,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("worker started")

	scheduler, err := a.schedule(ctx)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.listener.Run(ctx, a.handleChange)
	}()
	go func() {
		errCh <- a.serveMetrics(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("worker stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// handleChange publishes first so connected sessions see the event even
// when push delivery is slow.
func (a *App) handleChange(ctx context.Context, event events.Event) error {
	var errs []error
	if err := a.publisher.Publish(ctx, event); err != nil {
		errs = append(errs, fmt.Errorf("publish change: %w", err))
	}
	if a.push != nil {
		if err := a.push.HandleEvent(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("push fan-out: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) schedule(ctx context.Context) (*cron.Cron, error) {
	clog := cronLogger{log: a.logger.Sugar()}
	scheduler := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))

	for spec, job := range a.jobs {
		job := job
		if _, err := scheduler.AddFunc(spec, func() { a.runJob(ctx, job) }); err != nil {
			return nil, fmt.Errorf("schedule %s with %q: %w", job.Name(), spec, err)
		}
	}
	return scheduler, nil
}

func (a *App) runJob(ctx context.Context, job Job) {
	err := job.Run(ctx)
	metrics.JobRun(job.Name(), err == nil)
	if err != nil {
		a.logger.Error("scheduled job failed", zap.String("job", job.Name()), zap.Error(err))
	}
}

func (a *App) serveMetrics(ctx context.Context) error {
	addr := strings.TrimSpace(a.cfg.Worker.MetricsAddr)
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	a.logger.Info("worker metrics server started", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("worker metrics server: %w", err)
	}
	return nil
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
