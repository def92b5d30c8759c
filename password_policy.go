package authcore

import "unicode"

// validatePasswordStrength enforces the reset-flow password policy: long
// passphrases pass unconditionally; anything shorter must meet the minimum
// length and mix at least 3 of {lower, upper, digit, symbol}.
func validatePasswordStrength(password string, cfg PasswordResetConfig) error {
	if len(password) >= cfg.PassphraseLength {
		return nil
	}
	if len(password) < cfg.MinLength {
		return ErrWeakPassword
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	classes := 0
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasSymbol} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return ErrWeakPassword
	}
	return nil
}
