package notifications

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/pkg/config"
)

type emailAPI interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailClient sends transactional emails via Resend
type EmailClient struct {
	emails       emailAPI
	from         string
	dashboardURL string
}

// NewEmailClient returns nil if not configured
func NewEmailClient(cfg config.EmailConfig) *EmailClient {
	if cfg.ResendAPIKey == "" || cfg.From == "" {
		return nil
	}
	return &EmailClient{
		emails:       resend.NewClient(cfg.ResendAPIKey).Emails,
		from:         cfg.From,
		dashboardURL: cfg.DashboardURL,
	}
}

// SendWelcome sends new account credentials. The temporary password must be
// changed on first login.
func (c *EmailClient) SendWelcome(ctx context.Context, to, fullName, tempPassword string) error {
	if c == nil {
		return fmt.Errorf("email: client not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	name := fullName
	if name == "" {
		name = to
	}
	body := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome to the patient intake dashboard</h2>
  <p>Hi <strong>%s</strong>,</p>
  <p>An account has been created for you.</p>
  <ul>
    <li><strong>Email:</strong> %s</li>
    <li><strong>Temporary password:</strong> <code>%s</code></li>
  </ul>
  <p>Sign in at <a href="%s">%s</a>. You will be asked to choose a new password.</p>
</div>`, html.EscapeString(name), html.EscapeString(to), html.EscapeString(tempPassword),
		html.EscapeString(c.dashboardURL), html.EscapeString(c.dashboardURL))

	sent, err := c.emails.Send(&resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: "Your dashboard account",
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("email: resend send: %w", err)
	}

	log.Info().Str("to", to).Str("email_id", sent.Id).Msg("welcome email sent")
	return nil
}
