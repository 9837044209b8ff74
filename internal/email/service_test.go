package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService("smtp.example.com", "587", "mailer", "pw", "noreply@example.com", "Auth API", "https://app.example.com")
}

func TestRenderTwoFactorTemplate(t *testing.T) {
	svc := newTestService()

	body, err := svc.renderTwoFactorTemplate("Alice", "123456")
	require.NoError(t, err)

	assert.Contains(t, body, "Hi Alice,")
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "expire in 5 minutes")
}

func TestRenderPasswordResetTemplate(t *testing.T) {
	svc := newTestService()

	link := "https://app.example.com/reset-password?token=abc123"
	body, err := svc.renderPasswordResetTemplate("Alice", link)
	require.NoError(t, err)

	assert.Contains(t, body, "Hi Alice,")
	assert.Contains(t, body, `href="https://app.example.com/reset-password?token=abc123"`)
	assert.Contains(t, body, "expire in 30 minutes")
}

func TestRenderTemplates_EscapeUserInput(t *testing.T) {
	svc := newTestService()

	body, err := svc.renderTwoFactorTemplate("<script>alert(1)</script>", "123456")
	require.NoError(t, err)

	assert.NotContains(t, body, "<script>")
}
