// Package validate holds request-level validation helpers shared by the
// HTTP handlers.
package validate

import (
	"fmt"
	"regexp"
	"time"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email checks basic address shape; full verification belongs to the mail
// gateway.
func Email(v string) error {
	if v == "" {
		return fmt.Errorf("email is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// Birthday enforces the YYYY-MM-DD wire format and rejects future dates.
func Birthday(v string) error {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return fmt.Errorf("birthday must be YYYY-MM-DD")
	}
	if t.After(time.Now()) {
		return fmt.Errorf("birthday cannot be in the future")
	}
	return nil
}
