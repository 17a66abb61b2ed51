package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	mw "github.com/tienquocbui/pineapple/internal/infrastructure/http/middleware"
)

const auditEnqueueTimeout = 2 * time.Second

// Auditor logs account events and hands them to the webhook queue.
type Auditor struct {
	log      zerolog.Logger
	enqueuer ports.TaskEnqueuer
}

// NewAuditor returns an Auditor; a nil enqueuer only logs.
func NewAuditor(log zerolog.Logger, enqueuer ports.TaskEnqueuer) *Auditor {
	return &Auditor{log: log, enqueuer: enqueuer}
}

// Record logs the event, counts it and enqueues it for webhook delivery.
// Enqueue failures are logged by the enqueuer and never fail the request.
func (a *Auditor) Record(r *http.Request, event ports.AuditEvent) {
	event.IP = clientIP(r)
	ev := a.log.Info()
	if !event.Success {
		ev = a.log.Warn()
	}
	ev.
		Str("event", event.Event).
		Str("identity_id", event.IdentityID).
		Str("username", event.Username).
		Str("ip", event.IP).
		Str("request_id", middleware.GetReqID(r.Context())).
		Bool("success", event.Success)
	if event.Err != "" {
		ev.Str("error", event.Err)
	}
	ev.Msg("auth_audit")
	mw.RecordAuthAttempt(event.Event, event.Success)

	if a.enqueuer != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), auditEnqueueTimeout)
		defer cancel()
		_ = a.enqueuer.EnqueueWebhook(ctx, event)
	}
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	return r.RemoteAddr
}
