package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tienquocbui/pineapple/internal/application/credentials"
	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/application/provisioning"
	"github.com/tienquocbui/pineapple/internal/application/retention"
	"github.com/tienquocbui/pineapple/internal/config"
	infraauth "github.com/tienquocbui/pineapple/internal/infrastructure/auth"
	httprouter "github.com/tienquocbui/pineapple/internal/infrastructure/http"
	"github.com/tienquocbui/pineapple/internal/infrastructure/http/handlers"
	"github.com/tienquocbui/pineapple/internal/infrastructure/http/middleware"
	"github.com/tienquocbui/pineapple/internal/infrastructure/lockout"
	"github.com/tienquocbui/pineapple/internal/infrastructure/persistence/cache"
	"github.com/tienquocbui/pineapple/internal/infrastructure/persistence/memory"
	"github.com/tienquocbui/pineapple/internal/infrastructure/persistence/postgres"
	redisstore "github.com/tienquocbui/pineapple/internal/infrastructure/persistence/redis"
	"github.com/tienquocbui/pineapple/internal/infrastructure/queue"
	"github.com/tienquocbui/pineapple/internal/infrastructure/security"
	"github.com/tienquocbui/pineapple/internal/infrastructure/webhook"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	if cfg.Database.EnsureSchema {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("ensure schema")
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			if cfg.Reservation.Backend == config.ReservationBackendRedis {
				log.Fatal().Err(err).Msg("redis ping failed; required by RESERVATION_BACKEND=redis")
			}
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	healthChecks := map[string]handlers.HealthCheck{"database": pool.Ping}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var (
		reservations ports.ReservationStore
		lister       ports.ReservationLister
	)
	switch cfg.Reservation.Backend {
	case config.ReservationBackendRedis:
		reservations = redisstore.NewReservationStore(redisClient, cfg.Reservation.KeyPrefix)
	case config.ReservationBackendMemory:
		log.Warn().Msg("memory reservation backend: usernames are unique within this process only")
		store := memory.NewReservationStore()
		reservations, lister = store, store
	default:
		store := postgres.NewReservationStore(pool)
		reservations, lister = store, store
	}

	baseProfiles := postgres.NewProfileStore(pool)
	var profiles ports.ProfileStore = baseProfiles
	if cfg.ProfileCache.TTL > 0 {
		profiles = cache.NewProfileStore(baseProfiles, cfg.ProfileCache.TTL)
	}

	var taskEnqueuer ports.TaskEnqueuer
	var asynqWorker *queue.Worker
	if redisClient != nil {
		redisOpt := redisClient.Options()
		asynqOpt := asynq.RedisClientOpt{Addr: redisOpt.Addr, Username: redisOpt.Username, Password: redisOpt.Password, DB: redisOpt.DB}
		asynqEnq, err := queue.NewAsynqEnqueuer(asynqOpt, log)
		if err != nil {
			log.Fatal().Err(err).Msg("create asynq enqueuer")
		}
		defer asynqEnq.Close()
		taskEnqueuer = asynqEnq

		var emitter ports.WebhookEmitter = webhook.NewLogEmitter(log)
		if cfg.Webhook.URL != "" {
			emitter = webhook.NewHTTPEmitter(cfg.Webhook.URL, webhook.WithSigningSecret(cfg.Webhook.Secret))
		}
		workerCfg := queue.WorkerConfig{Emitter: emitter}
		if lister != nil && cfg.Sweep.Interval != "" {
			workerCfg.SweepInterval = cfg.Sweep.Interval
			workerCfg.Sweep = func(ctx context.Context) (int, error) {
				cutoff := time.Now().Add(-cfg.Sweep.Grace)
				return retention.RunReleaseOrphanedReservations(ctx, lister, reservations, baseProfiles, cutoff, cfg.Sweep.Limit)
			}
		} else if cfg.Sweep.Interval != "" {
			log.Warn().Str("backend", cfg.Reservation.Backend).Msg("reservation backend cannot be swept; orphan sweep disabled")
		}
		asynqWorker, err = queue.NewWorker(asynqOpt, workerCfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("create asynq worker")
		}
		go func() {
			if err := asynqWorker.Run(); err != nil {
				log.Warn().Err(err).Msg("asynq worker stopped")
			}
		}()
	} else {
		if cfg.Webhook.URL != "" {
			log.Warn().Msg("WEBHOOK_URL set without REDIS_URL; audit webhooks disabled")
		}
		taskEnqueuer = queue.NewNoopEnqueuer()
	}

	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  16,
		KeyLength:   32,
	})
	credentialStore := credentials.NewStore(
		postgres.NewIdentityRepository(pool),
		postgres.NewPasswordResetRepository(pool),
		hasher,
		security.NewLengthPolicy(cfg.Password.MinLength),
		taskEnqueuer,
		credentials.Config{ResetBaseURL: cfg.PasswordReset.BaseURL, ResetExpiry: cfg.PasswordReset.Expiry},
	)

	coord := provisioning.NewCoordinator(credentialStore, reservations, profiles, log,
		provisioning.WithLockout(lockout.NewMemoryStore(cfg.Lockout.MaxAttempts, cfg.Lockout.CooldownSeconds)),
		provisioning.WithCompensationTimeout(cfg.Provisioning.CompensationTimeout),
	)

	privateKey, generated, err := infraauth.LoadOrGenerateKey(cfg.JWT.PrivateKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load JWT private key")
	}
	if generated {
		log.Warn().Msg("JWT_PRIVATE_KEY_PATH not set; using an ephemeral signing key")
	}
	issuer := infraauth.NewTokenIssuer(privateKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	ipLimit, err := middleware.NewIPRateLimiter(cfg.RateLimit.RatePerIP, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("create IP rate limiter")
	}

	audit := handlers.NewAuditor(log, taskEnqueuer)
	router := httprouter.NewRouter(httprouter.RouterConfig{
		AccountsHandler: handlers.NewAccountsHandler(coord, issuer, cfg.JWT.AccessExpiry, audit, log),
		AuthHandler:     handlers.NewAuthHandler(coord, issuer, cfg.JWT.AccessExpiry, audit, log),
		HealthHandler:   handlers.NewHealthHandler(healthChecks),
		RequireJWT:      middleware.NewAuthValidator(issuer).Handler,
		Log:             log,
		Secure:          middleware.NewSecure(middleware.SecureOptions(cfg.Secure.IsDevelopment)),
		CORS:            middleware.CORS(cfg.CORS.AllowedOrigins),
		IPRateLimit:     ipLimit,
		Metrics:         true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("reservation_backend", cfg.Reservation.Backend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if asynqWorker != nil {
		asynqWorker.Shutdown()
	}
	log.Info().Msg("server stopped")
}
