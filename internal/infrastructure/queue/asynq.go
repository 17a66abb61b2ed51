package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/tienquocbui/pineapple/internal/application/ports"
)

const (
	TypeSendPasswordReset = "email:password_reset"
	TypeWebhook           = "webhook:emit"
	TypeSweepOrphans      = "reservations:sweep_orphans"
)

const webhookMaxRetry = 5

type TaskEnqueuer struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewAsynqEnqueuer(redisOpt asynq.RedisClientOpt, log zerolog.Logger) (*TaskEnqueuer, error) {
	client := asynq.NewClient(redisOpt)
	return &TaskEnqueuer{client: client, log: log}, nil
}

func (q *TaskEnqueuer) Close() error {
	return q.client.Close()
}

func (q *TaskEnqueuer) EnqueueSendPasswordReset(ctx context.Context, email, resetURL string) error {
	payload, err := json.Marshal(passwordResetPayload{Email: email, ResetURL: resetURL})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeSendPasswordReset, payload)
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		q.log.Warn().Err(err).Str("email", email).Msg("enqueue password reset email failed")
		return err
	}
	return nil
}

func (q *TaskEnqueuer) EnqueueWebhook(ctx context.Context, event ports.AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeWebhook, body, asynq.MaxRetry(webhookMaxRetry))
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		q.log.Warn().Err(err).Str("event", event.Event).Msg("enqueue webhook failed")
		return err
	}
	return nil
}

var _ ports.TaskEnqueuer = (*TaskEnqueuer)(nil)
