package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const maxDisplayNameLength = 64

// Profile is user-facing account data carrying the reserved username.
type Profile struct {
	IdentityID  IdentityID
	Username    string
	DisplayName string
	Bio         string
	AvatarRef   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeDisplayName trims whitespace and caps the name at 64 runes.
func NormalizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= maxDisplayNameLength {
		return name
	}
	runes := []rune(name)
	return string(runes[:maxDisplayNameLength])
}

// RepairOutcome is the onboarding state of an identity after login.
type RepairOutcome string

const (
	// RepairHealthy means the profile and its reservation agree.
	RepairHealthy RepairOutcome = "healthy"
	// RepairIncompleteProfile means the user must pick a username again.
	RepairIncompleteProfile RepairOutcome = "incomplete_profile"
)
