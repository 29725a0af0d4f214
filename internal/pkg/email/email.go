package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/http"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/yigit/ekklesia/internal/config"
)

// Message is an outgoing HTML email. Bcc recipients are never listed in headers.
type Message struct {
	To      []mail.Address
	Bcc     []mail.Address
	Subject string
	HTML    string
}

// HasRecipients reports whether the message has anyone to go to
func (m *Message) HasRecipients() bool {
	return len(m.To)+len(m.Bcc) > 0
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewSMTPMailer creates a new SMTPMailer
func NewSMTPMailer(config SMTPConfig, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{config: config, logger: logger}
}

func (s *SMTPMailer) from() string {
	return (&mail.Address{Name: s.config.FromName, Address: s.config.FromEmail}).String()
}

func joinAddresses(addrs []mail.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

func (s *SMTPMailer) build(msg *Message) []byte {
	to := joinAddresses(msg.To)
	if to == "" {
		to = "undisclosed-recipients:;"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from())
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mimeHeader(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

func mimeHeader(s string) string {
	return mime.BEncoding.Encode("UTF-8", s)
}

func recipients(msg *Message) []string {
	out := make([]string, 0, len(msg.To)+len(msg.Bcc))
	for _, a := range msg.To {
		out = append(out, a.Address)
	}
	for _, a := range msg.Bcc {
		out = append(out, a.Address)
	}
	return out
}

// Send delivers msg over SMTP, with implicit TLS when configured
func (s *SMTPMailer) Send(_ context.Context, msg *Message) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	serverAddress := s.config.Host + ":" + strconv.Itoa(s.config.Port)
	body := s.build(msg)
	rcpts := recipients(msg)

	if !s.config.UseTLS {
		if err := smtp.SendMail(serverAddress, auth, s.config.FromEmail, rcpts, body); err != nil {
			s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to send email")
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", serverAddress, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to connect to SMTP server")
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if s.config.Username != "" {
		if err = client.Auth(auth); err != nil {
			s.logger.Error().Err(err).Msg("SMTP authentication failed")
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range rcpts {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(body); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridMailer sends through the SendGrid v3 API
type SendGridMailer struct {
	key    string
	from   *sgmail.Email
	logger zerolog.Logger
}

// NewSendGridMailer creates a new SendGridMailer
func NewSendGridMailer(apiKey, fromName, fromEmail string, logger zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		key:    apiKey,
		from:   sgmail.NewEmail(fromName, fromEmail),
		logger: logger,
	}
}

func (s *SendGridMailer) prepare(msg *Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgmail.NewEmail(bcc.Name, bcc.Address))
	}
	if len(msg.To) == 0 {
		// the API requires at least one "to"
		p.AddTos(s.from)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	return m
}

// Send posts msg to SendGrid
func (s *SendGridMailer) Send(_ context.Context, msg *Message) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Error().Int("status", res.StatusCode).Str("body", res.Body).Msg("SendGrid rejected email")
		return fmt.Errorf("sendgrid returned status %d", res.StatusCode)
	}
	return nil
}

// LogMailer only logs messages. Used in development.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a new LogMailer
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the envelope of msg
func (l *LogMailer) Send(_ context.Context, msg *Message) error {
	l.logger.Info().
		Str("to", joinAddresses(msg.To)).
		Int("bcc", len(msg.Bcc)).
		Str("subject", msg.Subject).
		Msg("Email not sent (log mail driver)")
	return nil
}

// NewMailer builds the mail driver selected in the configuration
func NewMailer(cfg *config.Config, logger zerolog.Logger) (Mailer, error) {
	switch strings.ToLower(cfg.Mail.Driver) {
	case "smtp":
		return NewSMTPMailer(SMTPConfig{
			Host:      cfg.Mail.SMTPHost,
			Port:      cfg.Mail.SMTPPort,
			Username:  cfg.Mail.SMTPUsername,
			Password:  cfg.Mail.SMTPPassword,
			FromName:  cfg.Mail.FromName,
			FromEmail: cfg.Mail.FromEmail,
			UseTLS:    cfg.Mail.SMTPUseTLS,
		}, logger), nil
	case "sendgrid":
		return NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromEmail, logger), nil
	case "", "log":
		return NewLogMailer(logger), nil
	}
	return nil, fmt.Errorf("unknown mail driver %q", cfg.Mail.Driver)
}
