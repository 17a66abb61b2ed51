package domain

import (
	"strings"

	domerrors "github.com/tienquocbui/pineapple/internal/domain/errors"
)

// MaxUsernameLength is the longest accepted username.
const MaxUsernameLength = 30

// CanonicalUsername validates a requested username and returns its
// lower-case reservation key. Rules: 1..30 ASCII letters, digits, '.'
// or '_', and no leading or trailing '.'.
func CanonicalUsername(input string) (string, error) {
	if input == "" || len(input) > MaxUsernameLength {
		return "", domerrors.ErrInvalidUsername
	}
	var b strings.Builder
	b.Grow(len(input))
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '.', ch == '_':
		case ch >= 'A' && ch <= 'Z':
			ch = ch - 'A' + 'a'
		default:
			return "", domerrors.ErrInvalidUsername
		}
		b.WriteByte(ch)
	}
	if input[0] == '.' || input[len(input)-1] == '.' {
		return "", domerrors.ErrInvalidUsername
	}
	return b.String(), nil
}
