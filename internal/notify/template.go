package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/phrazzld/nudge-api/internal/domain"
)

const (
	defaultSubject = `Reminder: {{.Label}}`
	defaultBody    = `Hi {{.RecipientName}},

This is a reminder about {{.Label}}{{if .EventDate}} on {{.EventDate}}{{end}}.
{{- if .Note}}

{{.Note}}
{{- end}}
`
)

// Renderer renders reminder messages from text/template templates.
type Renderer struct {
	subject *template.Template
	body    *template.Template
}

// templateData is the data passed to reminder templates.
type templateData struct {
	RecipientName string
	Label         string
	EventDate     string
	Note          string
}

// NewRenderer parses the given templates. Empty strings select the defaults.
func NewRenderer(subject, body string) (*Renderer, error) {
	if subject == "" {
		subject = defaultSubject
	}
	if body == "" {
		body = defaultBody
	}
	st, err := template.New("subject").Option("missingkey=error").Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subject template: %w", err)
	}
	bt, err := template.New("body").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body template: %w", err)
	}
	return &Renderer{subject: st, body: bt}, nil
}

// DefaultRenderer returns a renderer with the built-in templates.
func DefaultRenderer() *Renderer {
	r, err := NewRenderer("", "")
	if err != nil {
		panic(err)
	}
	return r
}

// Render builds the message for target. note is optional free text from the task payload.
func (r *Renderer) Render(target *domain.NotificationTarget, note string) (Message, error) {
	data := templateData{
		RecipientName: target.RecipientName,
		Label:         target.SourceLabel,
		Note:          note,
	}
	if data.RecipientName == "" {
		data.RecipientName = "there"
	}
	if target.EventDate != nil {
		data.EventDate = target.EventDate.UTC().Format(time.DateOnly)
	}

	var subject, body bytes.Buffer
	if err := r.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := r.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("failed to render body: %w", err)
	}
	return Message{Subject: subject.String(), Body: body.String()}, nil
}
