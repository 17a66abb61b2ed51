package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/application/provisioning"
	"github.com/tienquocbui/pineapple/internal/domain"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
	"github.com/tienquocbui/pineapple/internal/infrastructure/http/middleware"
)

// AccountsHandler serves signup, username availability and the
// authenticated /accounts/me routes.
type AccountsHandler struct {
	coord        *provisioning.Coordinator
	issuer       ports.TokenIssuer
	accessExpiry int64
	audit        *Auditor
	validate     *validator.Validate
	log          zerolog.Logger
}

func NewAccountsHandler(coord *provisioning.Coordinator, issuer ports.TokenIssuer, accessExpiry int64, audit *Auditor, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		coord:        coord,
		issuer:       issuer,
		accessExpiry: accessExpiry,
		audit:        audit,
		validate:     newValidator(),
		log:          log,
	}
}

type profileResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	AvatarRef   string    `json:"avatar_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		ID:          p.IdentityID.String(),
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarRef:   p.AvatarRef,
		CreatedAt:   p.CreatedAt,
	}
}

func (h *AccountsHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"display_name" validate:"max=256"`
		Username    string `json:"username" validate:"required,max=64"`
		Email       string `json:"email" validate:"required,email,max=254"`
		Password    string `json:"password" validate:"required,max=128"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	result, err := h.coord.SignUp(r.Context(), provisioning.SignUpInput{
		DisplayName: body.DisplayName,
		Username:    body.Username,
		Email:       SanitizeEmail(body.Email),
		Password:    body.Password,
	})
	if err != nil {
		h.audit.Record(r, ports.AuditEvent{Event: "account.signup", Username: body.Username, Err: err.Error()})
		if !isClientErr(err) {
			h.log.Error().Err(err).Msg("signup failed")
		}
		writeDomainErr(w, err)
		return
	}
	id := result.Identity.ID.String()
	h.audit.Record(r, ports.AuditEvent{Event: "account.signup", IdentityID: id, Username: result.Profile.Username, Success: true})

	token, err := h.issuer.IssueAccessToken(id, h.accessExpiry)
	if err != nil {
		// The account exists; the client can log in to get a token.
		h.log.Error().Err(err).Str("identity_id", id).Msg("issue token after signup failed")
		token = ""
	}
	resp := map[string]interface{}{
		"id":           id,
		"email":        result.Identity.Email,
		"username":     result.Profile.Username,
		"display_name": result.Profile.DisplayName,
		"created_at":   result.Identity.CreatedAt,
	}
	if token != "" {
		resp["access_token"] = token
		resp["expires_in"] = h.accessExpiry
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AccountsHandler) UsernameAvailability(w http.ResponseWriter, r *http.Request) {
	username, available, err := h.coord.UsernameAvailable(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username":  username,
		"available": available,
	})
}

func (h *AccountsHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	profile, err := h.coord.Profile(r.Context(), id)
	if errors.Is(err, domerrors.ErrIncompleteProfile) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":         id.String(),
			"onboarding": domain.RepairIncompleteProfile,
		})
		return
	}
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":    newProfileResponse(profile),
		"onboarding": domain.RepairHealthy,
	})
}

func (h *AccountsHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	var body struct {
		DisplayName string `json:"display_name" validate:"max=256"`
		Username    string `json:"username" validate:"required,max=64"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	profile, err := h.coord.CompleteProfile(r.Context(), provisioning.CompleteProfileInput{
		IdentityID:  id,
		DisplayName: body.DisplayName,
		Username:    body.Username,
	})
	if err != nil {
		h.audit.Record(r, ports.AuditEvent{Event: "account.profile_completed", IdentityID: id.String(), Username: body.Username, Err: err.Error()})
		writeDomainErr(w, err)
		return
	}
	h.audit.Record(r, ports.AuditEvent{Event: "account.profile_completed", IdentityID: id.String(), Username: profile.Username, Success: true})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":    newProfileResponse(profile),
		"onboarding": domain.RepairHealthy,
	})
}

func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	if err := h.coord.DeleteAccount(r.Context(), id); err != nil {
		h.audit.Record(r, ports.AuditEvent{Event: "account.deleted", IdentityID: id.String(), Err: err.Error()})
		h.log.Error().Err(err).Str("identity_id", id.String()).Msg("delete account failed")
		writeDomainErr(w, err)
		return
	}
	h.audit.Record(r, ports.AuditEvent{Event: "account.deleted", IdentityID: id.String(), Success: true})
	w.WriteHeader(http.StatusNoContent)
}

// isClientErr reports errors caused by the request rather than the stores.
func isClientErr(err error) bool {
	for _, target := range []error{
		domerrors.ErrInvalidUsername,
		domerrors.ErrWeakPassword,
		domerrors.ErrUsernameTaken,
		domerrors.ErrEmailInUse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
