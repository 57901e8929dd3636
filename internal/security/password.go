package security

import (
	"fmt"
	"unicode"

	"github.com/Rrens/chat-archive/internal/domain"
)

// PasswordPolicy validates passwords at sign-up
type PasswordPolicy struct {
	MinLength     int
	RequireLetter bool
	RequireDigit  bool
}

// DefaultPasswordPolicy returns the policy used when none is configured
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, RequireLetter: true, RequireDigit: true}
}

// Validate returns a domain.ErrWeakPassword describing the first violated rule
func (p PasswordPolicy) Validate(password string) error {
	if len([]rune(password)) < p.MinLength {
		return domain.ErrWeakPassword.WithMessage(fmt.Sprintf("Password should be at least %d characters.", p.MinLength))
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if p.RequireLetter && !hasLetter {
		return domain.ErrWeakPassword.WithMessage("Password should contain at least one letter.")
	}
	if p.RequireDigit && !hasDigit {
		return domain.ErrWeakPassword.WithMessage("Password should contain at least one digit.")
	}
	return nil
}
