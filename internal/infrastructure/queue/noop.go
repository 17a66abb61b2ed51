package queue

import (
	"context"

	"github.com/tienquocbui/pineapple/internal/application/ports"
)

// NoopEnqueuer is a no-op enqueuer when Redis/Asynq is not configured.
type NoopEnqueuer struct{}

func NewNoopEnqueuer() *NoopEnqueuer {
	return &NoopEnqueuer{}
}

func (q *NoopEnqueuer) EnqueueSendPasswordReset(ctx context.Context, email, resetURL string) error {
	return nil
}

func (q *NoopEnqueuer) EnqueueWebhook(ctx context.Context, event ports.AuditEvent) error {
	return nil
}

var _ ports.TaskEnqueuer = (*NoopEnqueuer)(nil)
