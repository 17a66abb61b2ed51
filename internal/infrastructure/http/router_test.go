package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienquocbui/pineapple/internal/application/credentials"
	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/application/provisioning"
	"github.com/tienquocbui/pineapple/internal/domain"
	infraauth "github.com/tienquocbui/pineapple/internal/infrastructure/auth"
	"github.com/tienquocbui/pineapple/internal/infrastructure/http/handlers"
	"github.com/tienquocbui/pineapple/internal/infrastructure/http/middleware"
	"github.com/tienquocbui/pineapple/internal/infrastructure/lockout"
	"github.com/tienquocbui/pineapple/internal/infrastructure/persistence/memory"
	"github.com/tienquocbui/pineapple/internal/infrastructure/security"
)

type recordingEnqueuer struct {
	mu        sync.Mutex
	resetURLs []string
	events    []ports.AuditEvent
}

func (q *recordingEnqueuer) EnqueueSendPasswordReset(ctx context.Context, email, resetURL string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetURLs = append(q.resetURLs, resetURL)
	return nil
}

func (q *recordingEnqueuer) EnqueueWebhook(ctx context.Context, event ports.AuditEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

type testServer struct {
	handler      http.Handler
	queue        *recordingEnqueuer
	profiles     *memory.ProfileStore
	reservations *memory.ReservationStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	q := &recordingEnqueuer{}
	profiles := memory.NewProfileStore()
	reservations := memory.NewReservationStore()

	hasher := security.NewArgon2Hasher(security.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1})
	creds := credentials.NewStore(memory.NewIdentityRepository(), memory.NewPasswordResetStore(), hasher,
		security.NewLengthPolicy(6), q, credentials.Config{ResetBaseURL: "https://app.test/reset"})
	coord := provisioning.NewCoordinator(creds, reservations, profiles, log,
		provisioning.WithLockout(lockout.NewMemoryStore(5, 60)))

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	issuer := infraauth.NewTokenIssuer(key, "pineapple", "pineapple")
	audit := handlers.NewAuditor(log, q)

	return &testServer{
		handler: NewRouter(RouterConfig{
			AccountsHandler: handlers.NewAccountsHandler(coord, issuer, 900, audit, log),
			AuthHandler:     handlers.NewAuthHandler(coord, issuer, 900, audit, log),
			RequireJWT:      middleware.NewAuthValidator(issuer).Handler,
			Log:             log,
		}),
		queue:        q,
		profiles:     profiles,
		reservations: reservations,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func signupBody(display, username, email, password string) map[string]string {
	return map[string]string{"display_name": display, "username": username, "email": email, "password": password}
}

func TestSignupLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.do(t, http.MethodPost, "/accounts/signup", "", signupBody("Ann", "Ann_01", "ann@x.com", "secret1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "ann_01", out["username"])
	assert.NotEmpty(t, out["access_token"])

	rec, out = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ANN@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(domain.RepairHealthy), out["onboarding"])
	token, _ := out["access_token"].(string)
	require.NotEmpty(t, token)

	rec, out = s.do(t, http.MethodGet, "/accounts/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile, _ := out["profile"].(map[string]interface{})
	assert.Equal(t, "ann_01", profile["username"])

	rec, out = s.do(t, http.MethodGet, "/usernames/ANN_01", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["available"])
}

func TestSignupErrors(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodPost, "/accounts/signup", "", signupBody("Bob", "bob", "bob@x.com", "secret1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	cases := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"taken", signupBody("B", "BOB", "b2@x.com", "secret1"), http.StatusConflict, handlers.ErrCodeUsernameTaken},
		{"email in use", signupBody("B", "bob", "bob@x.com", "secret1"), http.StatusConflict, handlers.ErrCodeEmailInUse},
		{"invalid username", signupBody("B", "jo.", "jo@x.com", "secret1"), http.StatusBadRequest, handlers.ErrCodeInvalidUsername},
		{"weak password", signupBody("C", "carol", "carol@x.com", "pw"), http.StatusBadRequest, handlers.ErrCodeWeakPassword},
		{"bad email", signupBody("C", "carol", "not-an-email", "secret1"), http.StatusBadRequest, handlers.ErrCodeInvalidRequest},
		{"unknown field", map[string]string{"username": "carol", "email": "c@x.com", "password": "secret1", "admin": "yes"}, http.StatusBadRequest, handlers.ErrCodeInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := s.do(t, http.MethodPost, "/accounts/signup", "", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, out["code"])
		})
	}
	assert.Equal(t, 1, s.reservations.Count())
}

func TestLoginIncompleteThenCompleteProfile(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, http.MethodPost, "/accounts/signup", "", signupBody("Ann", "ann", "ann@x.com", "secret1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id, err := domain.ParseIdentityID(out["id"].(string))
	require.NoError(t, err)

	// Simulate a signup that lost its profile write.
	require.NoError(t, s.profiles.Delete(context.Background(), id))
	require.NoError(t, s.reservations.Release(context.Background(), "ann", id))

	rec, out = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ann@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.RepairIncompleteProfile), out["onboarding"])
	token := out["access_token"].(string)

	rec, out = s.do(t, http.MethodGet, "/accounts/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.RepairIncompleteProfile), out["onboarding"])

	rec, _ = s.do(t, http.MethodPost, "/accounts/me/profile", token, map[string]string{"display_name": "Ann", "username": "ann"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, out = s.do(t, http.MethodPost, "/accounts/me/profile", token, map[string]string{"display_name": "Ann", "username": "ann2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handlers.ErrCodeAlreadyProvisioned, out["code"])
}

func TestLoginFailuresAndLockout(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodPost, "/accounts/signup", "", signupBody("Ann", "ann", "ann@x.com", "secret1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	for i := 0; i < 5; i++ {
		rec, out := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ann@x.com", "password": "wrong1"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, handlers.ErrCodeInvalidCredentials, out["code"])
	}
	rec, out := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ann@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, handlers.ErrCodeAccountLocked, out["code"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestPasswordResetOverHTTP(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodPost, "/accounts/signup", "", signupBody("Ann", "ann", "ann@x.com", "secret1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "ann@x.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "nobody@x.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, s.queue.resetURLs, 1)

	u, err := url.Parse(s.queue.resetURLs[0])
	require.NoError(t, err)
	token := u.Query().Get("token")

	rec, _ = s.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"token": token, "new_password": "secret2"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, out := s.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"token": token, "new_password": "secret3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, handlers.ErrCodeInvalidToken, out["code"])

	rec, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ann@x.com", "password": "secret2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteAccountOverHTTP(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, http.MethodPost, "/accounts/signup", "", signupBody("Ann", "ann", "ann@x.com", "secret1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	token := out["access_token"].(string)

	rec, _ = s.do(t, http.MethodGet, "/accounts/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/accounts/me", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, out = s.do(t, http.MethodGet, "/usernames/ann", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["available"])

	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()
	var events []string
	for _, e := range s.queue.events {
		events = append(events, e.Event)
	}
	assert.Equal(t, []string{"account.signup", "account.deleted"}, events)
}

func TestHealthWithoutChecks(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}
