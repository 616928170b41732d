package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PolicySymbols is the fixed set of symbols a password may (and must) draw on.
const PolicySymbols = "@$!%*?&"

// v is the package-level singleton validator. Custom tags are registered in
// init before the first call to Struct.
var v = validator.New()

func init() {
	if err := v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return PasswordPolicy(fl.Field().String())
	}); err != nil {
		panic("register password_policy: " + err.Error())
	}
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// PasswordPolicy reports whether pw is at least 8 characters long, contains a
// lowercase letter, an uppercase letter, a digit and one of PolicySymbols, and
// uses no other characters.
func PasswordPolicy(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PolicySymbols, r):
			symbol = true
		default:
			return false
		}
	}
	return lower && upper && digit && symbol
}

// NormalizeEmail trims and case-folds an address so lookups and uniqueness are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
