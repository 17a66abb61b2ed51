package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	"github.com/tienquocbui/pineapple/internal/application/provisioning"
)

type AuthHandler struct {
	coord        *provisioning.Coordinator
	issuer       ports.TokenIssuer
	accessExpiry int64
	audit        *Auditor
	validate     *validator.Validate
	log          zerolog.Logger
}

func NewAuthHandler(coord *provisioning.Coordinator, issuer ports.TokenIssuer, accessExpiry int64, audit *Auditor, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		coord:        coord,
		issuer:       issuer,
		accessExpiry: accessExpiry,
		audit:        audit,
		validate:     newValidator(),
		log:          log,
	}
}

// Login authenticates, then reports whether the account still needs
// onboarding so the client can route to profile completion.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=128"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	identity, err := h.coord.Login(r.Context(), SanitizeEmail(body.Email), body.Password)
	if err != nil {
		h.audit.Record(r, ports.AuditEvent{Event: "account.login", Err: err.Error()})
		writeDomainErr(w, err)
		return
	}
	id := identity.ID.String()
	outcome, err := h.coord.RepairOnLogin(r.Context(), identity.ID)
	if err != nil {
		h.log.Error().Err(err).Str("identity_id", id).Msg("repair on login failed")
		writeDomainErr(w, err)
		return
	}
	token, err := h.issuer.IssueAccessToken(id, h.accessExpiry)
	if err != nil {
		h.log.Error().Err(err).Str("identity_id", id).Msg("issue token failed")
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	h.audit.Record(r, ports.AuditEvent{Event: "account.login", IdentityID: id, Success: true})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"expires_in":   h.accessExpiry,
		"onboarding":   outcome,
		"identity": map[string]interface{}{
			"id":    id,
			"email": identity.Email,
		},
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email" validate:"required,email,max=254"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	if err := h.coord.SendPasswordReset(r.Context(), SanitizeEmail(body.Email)); err != nil {
		h.log.Error().Err(err).Msg("send password reset failed")
		writeDomainErr(w, err)
		return
	}
	// Same response for known and unknown emails.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "if the email is registered, a reset link was sent"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token       string `json:"token" validate:"required,max=256"`
		NewPassword string `json:"new_password" validate:"required,max=128"`
	}
	if err := decodeBody(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "", err.Error())
		return
	}
	if err := h.coord.ResetPassword(r.Context(), body.Token, body.NewPassword); err != nil {
		h.audit.Record(r, ports.AuditEvent{Event: "account.password_reset", Err: err.Error()})
		writeDomainErr(w, err)
		return
	}
	h.audit.Record(r, ports.AuditEvent{Event: "account.password_reset", Success: true})
	w.WriteHeader(http.StatusNoContent)
}
