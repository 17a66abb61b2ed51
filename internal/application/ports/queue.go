package ports

import "context"

// TaskEnqueuer enqueues async tasks (email, webhook).
type TaskEnqueuer interface {
	EnqueueSendPasswordReset(ctx context.Context, email, resetURL string) error
	EnqueueWebhook(ctx context.Context, event AuditEvent) error
}
