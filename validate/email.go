// Package validate holds input validation for user-supplied fields.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalidEmail is returned for any address that fails validation. The
// caller surfaces it inline to the user; nothing is persisted.
type ErrInvalidEmail struct {
	Input string
}

func (e ErrInvalidEmail) Error() string {
	return fmt.Sprintf("%q is not a valid email address", e.Input)
}

// Email validates a submitted address and returns it in normalized form:
// surrounding whitespace removed and the domain part lowercased. The local
// part is preserved as typed, since mailbox names are case-sensitive in
// principle.
func Email(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if err := validate.Var(trimmed, "required,email"); err != nil {
		return "", ErrInvalidEmail{Input: input}
	}

	at := strings.LastIndex(trimmed, "@")
	normalized := trimmed[:at+1] + strings.ToLower(trimmed[at+1:])
	return normalized, nil
}
