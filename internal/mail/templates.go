package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

// PasswordResetData is everything the password reset email shows.
type PasswordResetData struct {
	Recipient string
	Code      string
	ExpiresIn time.Duration
}

func (d PasswordResetData) Minutes() int {
	return int(d.ExpiresIn.Round(time.Minute) / time.Minute)
}

// Templates renders outgoing emails from the embedded template files.
type Templates struct {
	resetHTML *htmltemplate.Template
	resetText *texttemplate.Template
}

func NewTemplates() (*Templates, error) {
	resetHTML, err := htmltemplate.ParseFS(templateFS, "templates/password_reset.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse password reset html template: %w", err)
	}
	resetText, err := texttemplate.ParseFS(templateFS, "templates/password_reset.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse password reset text template: %w", err)
	}
	return &Templates{resetHTML: resetHTML, resetText: resetText}, nil
}

func (t *Templates) PasswordReset(data PasswordResetData) (Message, error) {
	var html, text bytes.Buffer
	if err := t.resetHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render password reset html: %w", err)
	}
	if err := t.resetText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to render password reset text: %w", err)
	}
	return Message{
		To:       data.Recipient,
		Subject:  "Your password reset code",
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
