// Package mailer sends account emails.
package mailer

import (
	"context"
	"fmt"
	"html"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/Rrens/chat-archive/internal/config"
)

// Mailer sends the sign-up confirmation link
type Mailer interface {
	SendConfirmation(ctx context.Context, to, link string) error
}

// Sender abstracts the SMTP transport
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends HTML mail through a gomail dialer
type SMTPMailer struct {
	sender Sender
	from   string
	logger zerolog.Logger
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg config.SMTPConfig, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

// New returns an SMTP mailer when a host is configured, otherwise a mailer
// that logs the link.
func New(cfg config.SMTPConfig, logger zerolog.Logger) Mailer {
	if cfg.Host == "" {
		return &LogMailer{logger: logger}
	}
	return NewSMTPMailer(cfg, logger)
}

// SendConfirmation mails the confirmation link to the recipient
func (s *SMTPMailer) SendConfirmation(ctx context.Context, to, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := confirmationMessage(s.from, to, link)
	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error().Err(err).Str("to", to).Msg("Failed to send confirmation email")
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	s.logger.Info().Str("to", to).Msg("Confirmation email sent")
	return nil
}

func confirmationMessage(from, to, link string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Confirm your Chat Archive account")

	escaped := html.EscapeString(link)
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome to Chat Archive!</h2>
			<p>Confirm your email address to finish creating your account:</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Confirm email</a>
			<p>Or copy this link:</p>
			<p>%s</p>
			<p>If you didn't sign up, please ignore this email.</p>
		</div>
	`, escaped, escaped)

	m.SetBody("text/html", body)
	m.AddAlternative("text/plain", "Confirm your email address: "+link)
	return m
}

// LogMailer writes the link to the log, for development without SMTP
type LogMailer struct {
	logger zerolog.Logger

	mu    sync.Mutex
	links map[string]string
}

// NewLogMailer creates a mailer that only logs links
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (l *LogMailer) SendConfirmation(_ context.Context, to, link string) error {
	l.mu.Lock()
	if l.links == nil {
		l.links = make(map[string]string)
	}
	l.links[to] = link
	l.mu.Unlock()

	l.logger.Info().Str("to", to).Str("link", link).Msg("Confirmation link (SMTP not configured)")
	return nil
}

// LastLink returns the last link sent to address
func (l *LogMailer) LastLink(to string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	link, ok := l.links[to]
	return link, ok
}
