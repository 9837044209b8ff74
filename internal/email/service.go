package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/rbravo-MCR/auth-api/internal/logging"
)

type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromAddress  string
	fromName     string
	baseURL      string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, fromAddress, fromName, baseURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromAddress:  fromAddress,
		fromName:     fromName,
		baseURL:      baseURL,
	}
}

// SendTwoFactorCode emails the one-time login code to the user.
// Callers decide whether delivery failure is fatal; login treats it as such.
func (s *Service) SendTwoFactorCode(ctx context.Context, toEmail, toName, code string) error {
	logger := logging.GetLoggerFromContext(ctx)

	subject := "Your verification code"
	body, err := s.renderTwoFactorTemplate(toName, code)
	if err != nil {
		logger.Error("failed to render email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, subject, body); err != nil {
		logger.Error("failed to send verification code email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification code email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail sends a password reset link to the user
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)

	subject := "Reset your password"
	body, err := s.renderPasswordResetTemplate(toName, resetLink)
	if err != nil {
		logger.Error("failed to render email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, subject, body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

// sendEmail delivers an HTML email via SMTP with PLAIN auth
func (s *Service) sendEmail(toEmail, subject, htmlBody string) error {
	addr := s.smtpHost + ":" + s.smtpPort
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.fromName, s.fromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", toEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	if err := smtp.SendMail(addr, auth, s.fromAddress, []string{toEmail}, msg.Bytes()); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *Service) renderTwoFactorTemplate(name, code string) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hi {{.Name}},</h2>
    <p>Your verification code is:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
    <p>This code will expire in 5 minutes.</p>
    <p style="margin-top: 30px; font-size: 12px; color: #666;">If you didn't try to sign in, you can safely ignore this email.</p>
</body>
</html>
`

	t, err := template.New("twoFactor").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Name string
		Code string
	}{
		Name: name,
		Code: code,
	}

	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

func (s *Service) renderPasswordResetTemplate(name, resetLink string) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hi {{.Name}},</h2>
    <p>We received a request to reset your password. You can do it using this link:</p>
    <p><a href="{{.ResetLink}}">{{.ResetLink}}</a></p>
    <p>This link will expire in 30 minutes.</p>
    <p style="margin-top: 30px; font-size: 12px; color: #666;">If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
</body>
</html>
`

	t, err := template.New("passwordReset").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Name      string
		ResetLink string
	}{
		Name:      name,
		ResetLink: resetLink,
	}

	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
