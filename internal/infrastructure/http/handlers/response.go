package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tienquocbui/pineapple/internal/application/provisioning"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

// writeErr sends JSON { "error": message, "code": errCode }. If errCode is empty, a default is used from code.
func writeErr(w http.ResponseWriter, code int, errCode string, message string) {
	if errCode == "" {
		errCode = defaultErrCode(code)
	}
	writeJSON(w, code, map[string]string{"error": message, "code": errCode})
}

func defaultErrCode(httpCode int) string {
	switch httpCode {
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusServiceUnavailable:
		return ErrCodeUnavailable
	default:
		return ErrCodeInternal
	}
}

type errMapping struct {
	target error
	status int
	code   string
}

var domainErrors = []errMapping{
	{domerrors.ErrInvalidUsername, http.StatusBadRequest, ErrCodeInvalidUsername},
	{domerrors.ErrWeakPassword, http.StatusBadRequest, ErrCodeWeakPassword},
	{domerrors.ErrPasswordResetInvalid, http.StatusBadRequest, ErrCodeInvalidToken},
	{domerrors.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeInvalidCredentials},
	{domerrors.ErrUsernameTaken, http.StatusConflict, ErrCodeUsernameTaken},
	{domerrors.ErrEmailInUse, http.StatusConflict, ErrCodeEmailInUse},
	{domerrors.ErrAlreadyProvisioned, http.StatusConflict, ErrCodeAlreadyProvisioned},
	{domerrors.ErrIncompleteProfile, http.StatusConflict, ErrCodeIncompleteProfile},
	{domerrors.ErrAccountLocked, http.StatusTooManyRequests, ErrCodeAccountLocked},
	{domerrors.ErrProfileWriteFailure, http.StatusServiceUnavailable, ErrCodeSignupFailed},
	{domerrors.ErrNetwork, http.StatusServiceUnavailable, ErrCodeNetwork},
}

// writeDomainErr maps a coordinator error to its status and code. Internal
// causes wrapped behind a sentinel are never sent to the client.
func writeDomainErr(w http.ResponseWriter, err error) {
	var locked *provisioning.AccountLockedError
	if errors.As(err, &locked) {
		w.Header().Set("Retry-After", strconv.Itoa(locked.RetryAfterSeconds))
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			writeErr(w, m.status, m.code, m.target.Error())
			return
		}
	}
	writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
