package security

import (
	"unicode/utf8"

	"github.com/tienquocbui/pineapple/internal/application/ports"
	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

const (
	DefaultMinPasswordLength = 6
	MaxPasswordLength        = 128
)

// LengthPolicy accepts passwords of MinLength..128 runes.
type LengthPolicy struct {
	MinLength int
}

// NewLengthPolicy returns a policy; minLength <= 0 uses DefaultMinPasswordLength.
func NewLengthPolicy(minLength int) LengthPolicy {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	return LengthPolicy{MinLength: minLength}
}

func (p LengthPolicy) Check(password string) error {
	n := utf8.RuneCountInString(password)
	if n < p.MinLength || n > MaxPasswordLength {
		return domerrors.ErrWeakPassword
	}
	return nil
}

var _ ports.PasswordPolicy = LengthPolicy{}
