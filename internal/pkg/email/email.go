package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Sender delivers a single HTML email
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether enough settings are present to dial a server
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SMTPSender sends mail through gomail
type SMTPSender struct {
	config SMTPConfig
	dialer *gomail.Dialer
	logger zerolog.Logger
}

// NewSMTPSender creates a new SMTPSender
func NewSMTPSender(config SMTPConfig, logger zerolog.Logger) *SMTPSender {
	d := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	d.TLSConfig = &tls.Config{ServerName: config.Host}
	return &SMTPSender{config: config, dialer: d, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error().Err(err).Str("server", s.config.Host).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogSender logs instead of sending. Used when SMTP is not configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.Warn().
		Str("to", to).
		Str("subject", subject).
		Msg("SMTP not configured - email not sent")
	return nil
}

// NewSender picks the SMTP sender when configured and the log sender otherwise
func NewSender(config SMTPConfig, logger zerolog.Logger) Sender {
	if !config.Configured() {
		return NewLogSender(logger)
	}
	return NewSMTPSender(config, logger)
}

// CourseRequestHTML renders the admin notification for a new course request
func CourseRequestHTML(className, classTag, description, reviewURL string) string {
	desc := "<i>no description</i>"
	if description != "" {
		desc = html.EscapeString(description)
	}
	return fmt.Sprintf(`<p>A new course was requested on BearShare.</p>
<p><b>%s</b> (%s)</p>
<p>%s</p>
<p><a href="%s">Review pending requests</a></p>`,
		html.EscapeString(className), html.EscapeString(classTag), desc, html.EscapeString(reviewURL))
}
