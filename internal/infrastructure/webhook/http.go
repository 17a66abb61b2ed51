// Package webhook delivers account audit events to an external endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tienquocbui/pineapple/internal/application/ports"
)

const (
	HeaderSignature = "X-Pineapple-Signature"
	HeaderTimestamp = "X-Pineapple-Timestamp"
)

// HTTPEmitter POSTs audit events as JSON. When a secret is configured each
// request carries an HMAC-SHA256 of "<timestamp>.<body>".
type HTTPEmitter struct {
	client *http.Client
	url    string
	secret []byte
	now    func() time.Time
}

// HTTPEmitterOption configures HTTPEmitter.
type HTTPEmitterOption func(*HTTPEmitter)

// WithClient sets the HTTP client (default: 10s timeout).
func WithClient(c *http.Client) HTTPEmitterOption {
	return func(e *HTTPEmitter) { e.client = c }
}

// WithSigningSecret enables request signing.
func WithSigningSecret(secret string) HTTPEmitterOption {
	return func(e *HTTPEmitter) {
		if secret != "" {
			e.secret = []byte(secret)
		}
	}
}

func NewHTTPEmitter(url string, opts ...HTTPEmitterOption) *HTTPEmitter {
	e := &HTTPEmitter{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *HTTPEmitter) Emit(ctx context.Context, event ports.AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.secret != nil {
		ts := strconv.FormatInt(e.now().Unix(), 10)
		req.Header.Set(HeaderTimestamp, ts)
		req.Header.Set(HeaderSignature, Sign(e.secret, ts, body))
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of "<timestamp>.<body>".
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook endpoint returned %d", e.Status)
}

// LogEmitter writes audit events to the log when no endpoint is configured.
type LogEmitter struct {
	log zerolog.Logger
}

func NewLogEmitter(log zerolog.Logger) *LogEmitter {
	return &LogEmitter{log: log.With().Str("component", "audit").Logger()}
}

func (e *LogEmitter) Emit(ctx context.Context, event ports.AuditEvent) error {
	e.log.Info().
		Str("event", event.Event).
		Str("identity_id", event.IdentityID).
		Str("username", event.Username).
		Bool("success", event.Success).
		Str("error", event.Err).
		Msg("audit")
	return nil
}

var (
	_ ports.WebhookEmitter = (*HTTPEmitter)(nil)
	_ ports.WebhookEmitter = (*LogEmitter)(nil)
)
