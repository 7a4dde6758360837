package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/config"
	s3infra "github.com/ivankudzin/plutonic/backend/internal/infra/s3"
	pgrepo "github.com/ivankudzin/plutonic/backend/internal/repo/postgres"
	redrepo "github.com/ivankudzin/plutonic/backend/internal/repo/redis"
	authsvc "github.com/ivankudzin/plutonic/backend/internal/services/auth"
	candidatessvc "github.com/ivankudzin/plutonic/backend/internal/services/candidates"
	matchessvc "github.com/ivankudzin/plutonic/backend/internal/services/matches"
	mediasvc "github.com/ivankudzin/plutonic/backend/internal/services/media"
	meetupssvc "github.com/ivankudzin/plutonic/backend/internal/services/meetups"
	messagessvc "github.com/ivankudzin/plutonic/backend/internal/services/messages"
	pushsvc "github.com/ivankudzin/plutonic/backend/internal/services/push"
	ratesvc "github.com/ivankudzin/plutonic/backend/internal/services/rate"
	userssvc "github.com/ivankudzin/plutonic/backend/internal/services/users"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	if cfg.Postgres.AutoMigrate {
		if err := pgrepo.Migrate(cfg.Postgres.DSN, 0); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redrepo.NewClient(ctx, redrepo.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	// Object storage is optional: without it profile photos are unavailable
	// and everything else keeps working.
	var (
		photoStorage mediasvc.ObjectStorage
		urlSigner    userssvc.URLSigner
	)
	if client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		bucket := s3infra.NewBucket(client, cfg.S3.Bucket)
		photoStorage = bucket
		urlSigner = bucket
	}

	userRepo := pgrepo.NewUserRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	changeBus := redrepo.NewChangeBus(redisClient, log)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, redrepo.NewSessionRepo(redisClient), userRepo, authsvc.Config{
		RefreshTTL:     cfg.Auth.RefreshTTL,
		BcryptCost:     cfg.Auth.BcryptCost,
		FreeSuperLikes: cfg.Matching.FreeSuperLikesPerDay,
	})
	userService := userssvc.NewService(userssvc.Dependencies{
		Pool:      pool,
		Users:     userRepo,
		URLSigner: urlSigner,
		Logger:    log,
	})
	rateLimiter := ratesvc.NewLimiter(
		redrepo.NewRateRepo(redisClient),
		cfg.Matching.LikeMaxPerMinute,
		cfg.Matching.LikeMaxPer10Seconds,
	)
	matchService := matchessvc.NewService(matchessvc.Dependencies{
		Pool:        pool,
		Matches:     matchRepo,
		Quotas:      userRepo,
		Undo:        redrepo.NewUndoRepo(redisClient),
		RateLimiter: rateLimiter,
		Logger:      log,
	}, matchessvc.Config{
		FreeSuperLikesPerDay: cfg.Matching.FreeSuperLikesPerDay,
		DefaultTimezone:      cfg.Matching.DefaultTimezone,
		UndoTTL:              cfg.Matching.UndoTTL,
	})
	candidateService := candidatessvc.NewService(pgrepo.NewCandidateRepo(pool), userRepo, log, cfg.Matching.CandidateLimit)
	messageService := messagessvc.NewService(pgrepo.NewMessageRepo(pool), matchRepo, log)
	meetupService := meetupssvc.NewService(pgrepo.NewMeetupRepo(pool), matchRepo, log)
	mediaService := mediasvc.NewService(photoStorage, userService, log, cfg.S3.PresignTTL)
	// Delivery runs in the worker; the API only manages registrations.
	pushService := pushsvc.NewService(pgrepo.NewDeviceTokenRepo(pool), nil, log, pushsvc.Config{})

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg.HTTP.AllowedOrigins)
	RegisterRoutes(r, Dependencies{
		AuthService:      authService,
		UserService:      userService,
		CandidateService: candidateService,
		MatchService:     matchService,
		MessageService:   messageService,
		MeetupService:    meetupService,
		MediaService:     mediaService,
		PushService:      pushService,
		ChangeBus:        changeBus,
		HealthChecks: map[string]handlers.Pinger{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
		Logger: log,
		Config: cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// originPatterns turns allowed origins such as "https://plutonic.app" into
// the host patterns websocket.Accept checks cross-origin upgrades against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
