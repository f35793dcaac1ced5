package mailer

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/acadflow/acadflow-api/pkg/config"
)

// Kind identifies the notification template to render.
type Kind string

const (
	KindWelcome           Kind = "WELCOME"
	KindSignupRejected    Kind = "SIGNUP_REJECTED"
	KindLeaveApproved     Kind = "LEAVE_APPROVED"
	KindLeaveDenied       Kind = "LEAVE_DENIED"
	KindReplacementResult Kind = "REPLACEMENT_RESULT"
)

// Mailer delivers notification emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New constructs a Mailer from SMTP configuration.
func New(cfg config.MailerConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send renders the template for kind and delivers it to the recipient.
// context carries template-specific values, e.g. the replacement outcome.
func (m *Mailer) Send(kind Kind, recipient string, context map[string]string) error {
	if recipient == "" {
		return fmt.Errorf("recipient required")
	}
	subject, body, err := render(kind, context)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send %s mail: %w", kind, err)
	}
	return nil
}

func render(kind Kind, context map[string]string) (subject, body string, err error) {
	switch kind {
	case KindWelcome:
		return "Welcome to AcadFlow",
			wrap("#4CAF50", "Welcome!", "Your account has been approved. You can now sign in."), nil
	case KindSignupRejected:
		return "Signup Request Rejected",
			wrap("#FF0000", "Signup Request Rejected", "We regret to inform you that your signup request has been rejected."), nil
	case KindLeaveApproved:
		return "Leave Request Approved",
			wrap("#4CAF50", "Leave Request Approved", "Your leave request has been approved."), nil
	case KindLeaveDenied:
		return "Leave Request Denied",
			wrap("#FF0000", "Leave Request Denied", "We regret to inform you that your leave request has been denied."), nil
	case KindReplacementResult:
		outcome := context["outcome"]
		if outcome == "" {
			return "", "", fmt.Errorf("replacement mail requires an outcome")
		}
		color := "#4CAF50"
		if outcome != "APPROVED" {
			color = "#FF0000"
		}
		return fmt.Sprintf("Replacement Request %s", title(outcome)),
			wrap(color, fmt.Sprintf("Replacement Request %s", title(outcome)),
				fmt.Sprintf("Your replacement offer has been %s.", lower(outcome))), nil
	default:
		return "", "", fmt.Errorf("unknown mail kind %q", kind)
	}
}

func wrap(color, heading, text string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto;">
<h1 style="text-align: center; color: %s;">%s</h1>
<p>Hi,</p>
<p>%s</p>
<p>Thanks,<br>The AcadFlow Team</p>
</div>`, color, heading, text)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]) + lower(s)[1:]
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
