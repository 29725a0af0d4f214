package services

import (
	"context"
	"fmt"
	"net/mail"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/email"
)

// RecipientSource lists the profiles of one subscriber category
type RecipientSource interface {
	ListByRole(ctx context.Context, role models.Role) ([]*models.Profile, error)
}

// NotificationService renders templates and sends them in the background.
// Failures are logged and never reach the caller.
type NotificationService struct {
	mailer     email.Mailer
	renderer   *email.Renderer
	recipients RecipientSource
	baseURL    string
	logger     zerolog.Logger
	wg         sync.WaitGroup
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(mailer email.Mailer, renderer *email.Renderer, recipients RecipientSource, baseURL string, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		mailer:     mailer,
		renderer:   renderer,
		recipients: recipients,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// URL joins path to the public base URL
func (s *NotificationService) URL(path string) string {
	return s.baseURL + path
}

// Notify queues tmpl to a single profile
func (s *NotificationService) Notify(tmpl email.Template, to *models.Profile, data email.Data) {
	if to == nil || to.Email == "" {
		return
	}
	data.RecipientName = to.FullName()
	subject, body, err := s.renderer.Render(tmpl, data)
	if err != nil {
		s.logger.Error().Err(err).Str("template", string(tmpl)).Msg("Failed to render email")
		return
	}
	s.send(tmpl, &email.Message{
		To:      []mail.Address{{Name: to.FullName(), Address: to.Email}},
		Subject: subject,
		HTML:    body,
	})
}

// Broadcast queues one message per role with at least one profile, recipients in BCC
func (s *NotificationService) Broadcast(ctx context.Context, tmpl email.Template, data email.Data) (int, error) {
	data.RecipientName = "hermano/a"
	subject, body, err := s.renderer.Render(tmpl, data)
	if err != nil {
		return 0, fmt.Errorf("failed to render %s: %w", tmpl, err)
	}

	queued := 0
	for _, role := range models.Roles() {
		profiles, err := s.recipients.ListByRole(ctx, role)
		if err != nil {
			return queued, fmt.Errorf("failed to list %s recipients: %w", role, err)
		}
		if len(profiles) == 0 {
			continue
		}
		bcc := make([]mail.Address, 0, len(profiles))
		for _, p := range profiles {
			bcc = append(bcc, mail.Address{Name: p.FullName(), Address: p.Email})
		}
		s.send(tmpl, &email.Message{Bcc: bcc, Subject: subject, HTML: body})
		queued++
	}
	return queued, nil
}

func (s *NotificationService) send(tmpl email.Template, msg *email.Message) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.mailer.Send(context.Background(), msg); err != nil {
			s.logger.Error().Err(err).
				Str("template", string(tmpl)).
				Int("recipients", len(msg.To)+len(msg.Bcc)).
				Msg("Failed to send notification email")
		}
	}()
}

// Wait blocks until every queued email has been attempted
func (s *NotificationService) Wait() {
	s.wg.Wait()
}
