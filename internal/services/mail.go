package services

import (
	"fmt"
	"log"
	"time"

	"github.com/WaterWatchLabs/aquasense-backend/internal/config"
	"github.com/wneessen/go-mail"
)

// Mailer sends a notification email. Implementations must be safe for
// concurrent use. Sending is always best-effort from the caller's point of
// view: a failed send degrades the response message, never the operation.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// mailService is the process-wide mailer. Nil when SMTP is not configured,
// in which case sends are skipped and logged.
var mailService Mailer

// InitMailService configures the SMTP mailer from config. Returns an error
// when the relay settings are invalid; missing settings are not an error,
// the service just runs without outbound mail.
func InitMailService(cfg *config.Config) error {
	if !cfg.MailConfigured() {
		mailService = nil
		return nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.MailPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.MailUsername),
		mail.WithPassword(cfg.MailPassword),
		// Bound the whole dial+send so a broken relay can't stall a request
		mail.WithTimeout(10 * time.Second),
	}
	switch {
	case cfg.MailUseSSL:
		opts = append(opts, mail.WithSSL())
	case cfg.MailUseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.MailServer, opts...)
	if err != nil {
		return err
	}

	mailService = &smtpMailer{client: client, sender: cfg.MailSender}
	return nil
}

// SetMailer overrides the process mailer (used by tests).
func SetMailer(m Mailer) {
	mailService = m
}

type smtpMailer struct {
	client *mail.Client
	sender string
}

func (s *smtpMailer) Send(to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.sender); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	return s.client.DialAndSend(msg)
}

// SendMail delivers a message through the configured mailer.
// Returns an error when no mailer is configured so callers can degrade.
func SendMail(to, subject, htmlBody string) error {
	if mailService == nil {
		return fmt.Errorf("mail not configured")
	}
	return mailService.Send(to, subject, htmlBody)
}

// SendWelcomeEmail greets a freshly registered user.
func SendWelcomeEmail(to, name string) error {
	body := fmt.Sprintf(`
		<h2>Welcome, %s! 👋</h2>
		<p>Thank you for registering on our platform.</p>
		<p>You can now log in and start exploring water quality predictions.</p>
		<hr>
		<p style="color:gray;">Best regards,<br>The AquaSense Team</p>`, name)
	return SendMail(to, "Welcome to AquaSense!", body)
}

// SendOTPEmail delivers a password-reset code.
func SendOTPEmail(to, code string) error {
	body := fmt.Sprintf(`
		<h2>Password Reset Code</h2>
		<p>Your one-time code is:</p>
		<h1 style="letter-spacing:4px;">%s</h1>
		<p>It expires in 10 minutes. If you didn't request this, ignore this email.</p>`, code)
	return SendMail(to, "Your AquaSense password reset code", body)
}

// SendPasswordChangedEmail confirms a completed reset.
func SendPasswordChangedEmail(to string) error {
	body := `
		<h2>Password Changed</h2>
		<p>Your password was just reset. If this wasn't you, contact support immediately.</p>`
	return SendMail(to, "Your AquaSense password was changed", body)
}

// LogMailFailure records a failed send with enough context for operators.
func LogMailFailure(kind, to string, err error) {
	log.Printf("❌ %s email to %s failed: %v", kind, to, err)
}
