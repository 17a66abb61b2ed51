package ports

// PasswordHasher hashes and verifies passwords (Argon2id).
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// PasswordPolicy rejects weak passwords with ErrWeakPassword.
type PasswordPolicy interface {
	Check(password string) error
}

// TokenIssuer signs and validates identity access tokens (RS256).
type TokenIssuer interface {
	IssueAccessToken(identityID string, expiresInSeconds int64) (string, error)
	ValidateAccessToken(tokenString string) (identityID string, err error)
}
