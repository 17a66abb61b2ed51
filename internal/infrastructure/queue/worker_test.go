package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienquocbui/pineapple/internal/application/ports"
)

type captureEmitter struct {
	events []ports.AuditEvent
	err    error
}

func (c *captureEmitter) Emit(ctx context.Context, event ports.AuditEvent) error {
	c.events = append(c.events, event)
	return c.err
}

func TestHandleWebhookDelivers(t *testing.T) {
	emitter := &captureEmitter{}
	w := &Worker{emitter: emitter, log: zerolog.Nop()}
	body, err := json.Marshal(ports.AuditEvent{Event: "account.signup", Username: "ann_01", Success: true})
	require.NoError(t, err)

	require.NoError(t, w.handleWebhook(context.Background(), asynq.NewTask(TypeWebhook, body)))
	require.Len(t, emitter.events, 1)
	assert.Equal(t, "ann_01", emitter.events[0].Username)
}

func TestHandleWebhookRetriesOnDeliveryError(t *testing.T) {
	emitter := &captureEmitter{err: errors.New("502")}
	w := &Worker{emitter: emitter, log: zerolog.Nop()}

	err := w.handleWebhook(context.Background(), asynq.NewTask(TypeWebhook, []byte(`{"event":"account.login"}`)))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleWebhookBadPayloadSkipsRetry(t *testing.T) {
	w := &Worker{emitter: &captureEmitter{}, log: zerolog.Nop()}
	err := w.handleWebhook(context.Background(), asynq.NewTask(TypeWebhook, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSweepOrphans(t *testing.T) {
	calls := 0
	w := &Worker{log: zerolog.Nop(), sweep: func(ctx context.Context) (int, error) {
		calls++
		return 2, nil
	}}
	require.NoError(t, w.handleSweepOrphans(context.Background(), asynq.NewTask(TypeSweepOrphans, nil)))
	assert.Equal(t, 1, calls)

	w.sweep = func(ctx context.Context) (int, error) { return 0, errors.New("down") }
	assert.Error(t, w.handleSweepOrphans(context.Background(), asynq.NewTask(TypeSweepOrphans, nil)))
}
