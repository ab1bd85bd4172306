// Package report composes and dispatches the monthly training report e-mail.
package report

import (
	"fmt"
	"strings"

	"example.com/fitnesstracker/internal/domain"
)

// DefaultSubject is used when no subject override is configured.
const DefaultSubject = "Monthly Training Report"

// Composer renders report e-mails. It holds no state besides the subject line.
type Composer struct {
	subject string
}

// NewComposer constructs a Composer; an empty subject falls back to DefaultSubject.
func NewComposer(subject string) *Composer {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	return &Composer{subject: subject}
}

// Compose builds the e-mail for one user.
func (c *Composer) Compose(user domain.User, totalTrainings int, window domain.Window) domain.ReportEmail {
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", user.FirstName)
	fmt.Fprintf(&body, "You completed %d %s in %s.\n\n", totalTrainings, plural(totalTrainings), window.Label())
	body.WriteString("Keep up the great work!\n")

	return domain.ReportEmail{
		To:      user.Email,
		Subject: c.subject,
		Body:    body.String(),
	}
}

func plural(n int) string {
	if n == 1 {
		return "training"
	}
	return "trainings"
}
