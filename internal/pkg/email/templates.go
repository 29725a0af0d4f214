package email

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names a notification email
type Template string

const (
	TemplateRegistrationReceived Template = "registration_received"
	TemplateRegistrationApproved Template = "registration_approved"
	TemplateRegistrationRejected Template = "registration_rejected"
	TemplateMembershipRequested  Template = "membership_requested"
	TemplateMembershipApproved   Template = "membership_approved"
	TemplateMembershipRejected   Template = "membership_rejected"
	TemplateRemovalRequested     Template = "removal_requested"
	TemplateProfileInvited       Template = "profile_invited"
	TemplateContentPublished     Template = "content_published"
)

var allTemplates = []Template{
	TemplateRegistrationReceived,
	TemplateRegistrationApproved,
	TemplateRegistrationRejected,
	TemplateMembershipRequested,
	TemplateMembershipApproved,
	TemplateMembershipRejected,
	TemplateRemovalRequested,
	TemplateProfileInvited,
	TemplateContentPublished,
}

// Data is the value every template is executed with. Templates use the fields they need.
type Data struct {
	AppName       string
	RecipientName string
	URL           string

	EventTitle string
	EventDate  string
	Location   string

	TeamName   string
	MemberName string

	TempPassword string

	Kind    string
	Title   string
	Summary string
}

// Renderer turns templates into subject and HTML body
type Renderer struct {
	appName   string
	templates map[Template]*template.Template
}

// NewRenderer parses every embedded template once
func NewRenderer(appName string) (*Renderer, error) {
	r := &Renderer{appName: appName, templates: make(map[Template]*template.Template, len(allTemplates))}
	for _, name := range allTemplates {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(name)+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render executes template name and returns its subject and body
func (r *Renderer) Render(name Template, data Data) (subject, body string, err error) {
	t, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	if data.AppName == "" {
		data.AppName = r.appName
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "subject", data); err != nil {
		return "", "", fmt.Errorf("failed to render subject of %s: %w", name, err)
	}
	subject = html.UnescapeString(strings.TrimSpace(buf.String()))

	buf.Reset()
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", "", fmt.Errorf("failed to render body of %s: %w", name, err)
	}
	return subject, buf.String(), nil
}
