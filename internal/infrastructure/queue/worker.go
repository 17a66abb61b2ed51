package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/tienquocbui/pineapple/internal/application/ports"
)

// passwordResetPayload matches the JSON enqueued by TaskEnqueuer.EnqueueSendPasswordReset.
type passwordResetPayload struct {
	Email    string `json:"email"`
	ResetURL string `json:"reset_url"`
}

// SweepFunc releases orphaned reservations and reports how many it freed.
type SweepFunc func(ctx context.Context) (int, error)

// Worker runs Asynq task handlers and, when a sweep interval is set, the
// periodic orphan sweep.
type Worker struct {
	srv       *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	emitter   ports.WebhookEmitter
	sweep     SweepFunc
	log       zerolog.Logger
}

// WorkerConfig wires the worker's collaborators. SweepInterval is an asynq
// cronspec such as "@every 1h"; empty disables the sweep.
type WorkerConfig struct {
	Emitter       ports.WebhookEmitter
	Sweep         SweepFunc
	SweepInterval string
	Concurrency   int
}

// NewWorker creates an Asynq server and registers handlers. Call Run() to start.
func NewWorker(redisOpt asynq.RedisClientOpt, cfg WorkerConfig, log zerolog.Logger) (*Worker, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		LogLevel:    asynq.InfoLevel,
	})
	w := &Worker{
		srv:     srv,
		mux:     asynq.NewServeMux(),
		emitter: cfg.Emitter,
		sweep:   cfg.Sweep,
		log:     log.With().Str("component", "worker").Logger(),
	}
	w.mux.HandleFunc(TypeSendPasswordReset, w.handleSendPasswordReset)
	w.mux.HandleFunc(TypeWebhook, w.handleWebhook)
	w.mux.HandleFunc(TypeSweepOrphans, w.handleSweepOrphans)

	if cfg.Sweep != nil && cfg.SweepInterval != "" {
		w.scheduler = asynq.NewScheduler(redisOpt, nil)
		if _, err := w.scheduler.Register(cfg.SweepInterval, asynq.NewTask(TypeSweepOrphans, nil, asynq.MaxRetry(0))); err != nil {
			return nil, fmt.Errorf("register sweep %q: %w", cfg.SweepInterval, err)
		}
	}
	return w, nil
}

func (w *Worker) handleSendPasswordReset(ctx context.Context, t *asynq.Task) error {
	var p passwordResetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		w.log.Error().Err(err).Msg("password reset task payload invalid")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	w.log.Info().
		Str("email", p.Email).
		Str("reset_url", p.ResetURL).
		Msg("password reset email (log only; configure SMTP for real email)")
	return nil
}

func (w *Worker) handleWebhook(ctx context.Context, t *asynq.Task) error {
	var event ports.AuditEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		w.log.Error().Err(err).Msg("webhook task payload invalid")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if w.emitter == nil {
		return nil
	}
	if err := w.emitter.Emit(ctx, event); err != nil {
		w.log.Warn().Err(err).Str("event", event.Event).Msg("webhook delivery failed")
		return err
	}
	return nil
}

func (w *Worker) handleSweepOrphans(ctx context.Context, t *asynq.Task) error {
	if w.sweep == nil {
		return nil
	}
	released, err := w.sweep(ctx)
	if err != nil {
		w.log.Error().Err(err).Int("released", released).Msg("orphan sweep failed")
		return err
	}
	w.log.Info().Int("released", released).Msg("orphan sweep finished")
	return nil
}

// Run blocks until shutdown. Use Shutdown for graceful stop.
func (w *Worker) Run() error {
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	return w.srv.Run(w.mux)
}

// Shutdown stops the scheduler and the worker.
func (w *Worker) Shutdown() {
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.srv.Shutdown()
}
