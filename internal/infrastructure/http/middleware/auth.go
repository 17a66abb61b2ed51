package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/domain"
)

// AuthValidator validates the bearer JWT and sets the identity in context (see AuthFromContext).
type AuthValidator struct {
	issuer ports.TokenIssuer
}

func NewAuthValidator(issuer ports.TokenIssuer) *AuthValidator {
	return &AuthValidator{issuer: issuer}
}

func (m *AuthValidator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeErr(w, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization")
			return
		}
		subject, err := m.issuer.ValidateAccessToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "invalid_token", "invalid token")
			return
		}
		id, err := domain.ParseIdentityID(subject)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "invalid_token", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), id)))
	})
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
