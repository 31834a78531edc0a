// Package mail renders and dispatches account emails. Rendering and
// queueing happen on the request path (fast, fire-and-forget);
// actual SMTP delivery happens in the background consumer.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/auth-service/internal/queue"
)

// QueueMailer renders account emails and publishes them to the
// broker. It satisfies the service layer's Mailer interface.
type QueueMailer struct {
	AppName   string
	ClientURL string
}

func NewQueueMailer(appName, clientURL string) *QueueMailer {
	return &QueueMailer{AppName: appName, ClientURL: clientURL}
}

// SendVerificationEmail queues the address-confirmation email.
func (m *QueueMailer) SendVerificationEmail(ctx context.Context, to, firstName, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.ClientURL, token)
	body := fmt.Sprintf(verificationTemplate, m.AppName, firstName, link, link, link)
	return m.publish(ctx, to, "Verify Your Email Address", body)
}

// SendPasswordResetEmail queues the password-reset email.
func (m *QueueMailer) SendPasswordResetEmail(ctx context.Context, to, firstName, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.ClientURL, token)
	body := fmt.Sprintf(resetTemplate, firstName, link, link, link)
	return m.publish(ctx, to, "Reset Your Password", body)
}

func (m *QueueMailer) publish(ctx context.Context, to, subject, body string) error {
	return queue.PublishEmail(ctx, queue.EmailMessage{
		To:       to,
		Subject:  subject,
		HTMLBody: body,
		QueuedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

const verificationTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Welcome to %s!</h1>
    <h2>Hi %s,</h2>
    <p>Thank you for signing up! Please verify your email address by clicking the button below:</p>
    <p style="text-align: center;">
      <a href="%s" style="display: inline-block; background: #007bff; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Verify Email Address</a>
    </p>
    <p>Or copy and paste this link into your browser:</p>
    <p><a href="%s">%s</a></p>
    <p>If you didn't create an account, please ignore this email.</p>
  </div>
</body>
</html>`

const resetTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Password Reset</h1>
    <h2>Hi %s,</h2>
    <p>We received a request to reset your password. Click the button below to choose a new one:</p>
    <p style="text-align: center;">
      <a href="%s" style="display: inline-block; background: #dc3545; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Reset Password</a>
    </p>
    <p>Or copy and paste this link into your browser:</p>
    <p><a href="%s">%s</a></p>
    <p>This link expires in 10 minutes. If you didn't request a reset, you can safely ignore this email.</p>
  </div>
</body>
</html>`
