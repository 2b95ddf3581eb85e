// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"codeberg.org/oliverandrich/go-identity-service/internal/i18n"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var mailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// Message is a rendered mail ready for delivery.
type Message struct {
	Subject  string
	HTMLBody string
}

// VerificationMail renders the mail carrying the 6-digit verification code.
func VerificationMail(ctx context.Context, name, code string) (*Message, error) {
	body, err := render("verification.html.tmpl", map[string]any{
		"Name": name,
		"Code": code,
	})
	if err != nil {
		return nil, err
	}
	return &Message{Subject: i18n.T(ctx, "mail_verification_subject"), HTMLBody: body}, nil
}

// WelcomeMail renders the mail sent after successful verification.
func WelcomeMail(ctx context.Context, name string) (*Message, error) {
	body, err := render("welcome.html.tmpl", map[string]any{
		"Name": name,
	})
	if err != nil {
		return nil, err
	}
	return &Message{Subject: i18n.T(ctx, "mail_welcome_subject"), HTMLBody: body}, nil
}

// ResetMail renders the mail carrying the password reset link.
func ResetMail(ctx context.Context, name, resetLink, expiry string) (*Message, error) {
	body, err := render("reset.html.tmpl", map[string]any{
		"Name":      name,
		"ResetLink": resetLink,
		"Expiry":    expiry,
	})
	if err != nil {
		return nil, err
	}
	return &Message{Subject: i18n.T(ctx, "mail_reset_subject"), HTMLBody: body}, nil
}

// ResetSuccessMail renders the confirmation mail sent after a password change.
func ResetSuccessMail(ctx context.Context, name string) (*Message, error) {
	body, err := render("reset_success.html.tmpl", map[string]any{
		"Name": name,
	})
	if err != nil {
		return nil, err
	}
	return &Message{Subject: i18n.T(ctx, "mail_reset_success_subject"), HTMLBody: body}, nil
}

func render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering mail template %s: %w", name, err)
	}
	return buf.String(), nil
}
