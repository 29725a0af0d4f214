package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/email"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []*email.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type staticRecipients map[models.Role][]*models.Profile

func (r staticRecipients) ListByRole(_ context.Context, role models.Role) ([]*models.Profile, error) {
	return r[role], nil
}

func newTestNotifications(t *testing.T, mailer email.Mailer, recipients RecipientSource) *NotificationService {
	t.Helper()
	renderer, err := email.NewRenderer("Ekklesia")
	require.NoError(t, err)
	return NewNotificationService(mailer, renderer, recipients, "https://iglesia.test", zerolog.Nop())
}

func TestNotificationService_BroadcastOncePerCategory(t *testing.T) {
	mailer := &captureMailer{}
	recipients := staticRecipients{
		models.RoleMiembro: {{Email: "a@example.com"}, {Email: "b@example.com"}},
		models.RoleAdmin:   {{Email: "admin@example.com"}},
	}
	s := newTestNotifications(t, mailer, recipients)

	n, err := s.Broadcast(context.Background(), email.TemplateContentPublished, email.Data{Kind: "anuncio", Title: "Culto"})
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, 2, n)
	require.Len(t, mailer.sent, 2)
	for _, msg := range mailer.sent {
		assert.Empty(t, msg.To)
		assert.NotEmpty(t, msg.Bcc)
	}
}

func TestNotificationService_NotifyFailureIsSwallowed(t *testing.T) {
	mailer := &captureMailer{err: errors.New("smtp down")}
	s := newTestNotifications(t, mailer, staticRecipients{})

	s.Notify(email.TemplateRegistrationApproved, &models.Profile{Email: "ana@example.com", FirstName: "Ana"}, email.Data{EventTitle: "Retiro"})
	s.Notify(email.TemplateRegistrationApproved, &models.Profile{}, email.Data{})
	s.Wait()

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ana@example.com", mailer.sent[0].To[0].Address)
	assert.Equal(t, "https://iglesia.test/eventos", s.URL("/eventos"))
}
