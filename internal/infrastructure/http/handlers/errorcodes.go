package handlers

// API error codes returned in JSON { "error": "...", "code": "..." } for stable client handling.
const (
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeInvalidUsername    = "invalid_username"
	ErrCodeWeakPassword       = "weak_password"
	ErrCodeUsernameTaken      = "username_taken"
	ErrCodeEmailInUse         = "email_in_use"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeAccountLocked      = "account_locked"
	ErrCodeIncompleteProfile  = "incomplete_profile"
	ErrCodeAlreadyProvisioned = "already_provisioned"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeNotFound           = "not_found"
	ErrCodeSignupFailed       = "signup_failed"
	ErrCodeNetwork            = "network_error"
	ErrCodeUnavailable        = "unavailable"
	ErrCodeInternal           = "internal_error"
)
