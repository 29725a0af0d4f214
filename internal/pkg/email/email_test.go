package email

import (
	"context"
	"net/mail"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/ekklesia/internal/config"
)

func TestRenderer_RendersEveryTemplate(t *testing.T) {
	r, err := NewRenderer("Ekklesia")
	require.NoError(t, err)

	data := Data{
		RecipientName: "Ana Mora",
		URL:           "https://iglesia.example/eventos/4",
		EventTitle:    "Retiro de jóvenes",
		EventDate:     "05/01/2024",
		Location:      "Heredia",
		TeamName:      "Alabanza",
		MemberName:    "Luis Vargas",
		TempPassword:  "t3mp-Pass",
		Kind:          "anuncio",
		Title:         "Culto & cena",
		Summary:       "Resumen",
	}

	for _, name := range allTemplates {
		t.Run(string(name), func(t *testing.T) {
			subject, body, err := r.Render(name, data)
			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.NotContains(t, subject, "&amp;")
			assert.Contains(t, body, "Ekklesia")
			assert.Contains(t, body, "Ana Mora")
		})
	}
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer("Ekklesia")
	require.NoError(t, err)

	_, _, err = r.Render(Template("nope"), Data{})
	assert.Error(t, err)
}

func TestSMTPMailer_BuildKeepsBccOutOfHeaders(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{FromName: "Ekklesia", FromEmail: "no-reply@ekklesia.app"}, zerolog.Nop())
	msg := &Message{
		Bcc:     []mail.Address{{Address: "a@example.com"}, {Address: "b@example.com"}},
		Subject: "Nuevo anuncio publicado",
		HTML:    "<p>hola</p>",
	}

	raw := string(m.build(msg))
	assert.Contains(t, raw, "To: undisclosed-recipients:;")
	assert.NotContains(t, raw, "a@example.com")
	assert.True(t, strings.HasSuffix(raw, "<p>hola</p>"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, recipients(msg))
}

func TestSendGridMailer_PrepareWithOnlyBcc(t *testing.T) {
	m := NewSendGridMailer("key", "Ekklesia", "no-reply@ekklesia.app", zerolog.Nop())
	v3 := m.prepare(&Message{
		Bcc:     []mail.Address{{Address: "a@example.com"}},
		Subject: "Hola",
		HTML:    "<p>x</p>",
	})

	require.Len(t, v3.Personalizations, 1)
	p := v3.Personalizations[0]
	require.Len(t, p.To, 1)
	assert.Equal(t, "no-reply@ekklesia.app", p.To[0].Address)
	require.Len(t, p.BCC, 1)
	assert.Equal(t, "a@example.com", p.BCC[0].Address)
}

func TestNewMailer(t *testing.T) {
	cfg := &config.Config{}

	cfg.Mail.Driver = ""
	m, err := NewMailer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)
	assert.NoError(t, m.Send(context.Background(), &Message{Subject: "x"}))

	cfg.Mail.Driver = "SMTP"
	m, err = NewMailer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	cfg.Mail.Driver = "sendgrid"
	m, err = NewMailer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SendGridMailer{}, m)

	cfg.Mail.Driver = "pigeon"
	_, err = NewMailer(cfg, zerolog.Nop())
	assert.Error(t, err)
}
