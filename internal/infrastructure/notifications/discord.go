package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

const discordColor = 0x3498db

type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts team messages as embeds through a Discord webhook
type DiscordNotifier struct {
	session   webhookExecutor
	webhookID string
	token     string
}

// NewDiscordNotifier returns nil when the webhook is not configured
func NewDiscordNotifier(webhookID, token string) (*DiscordNotifier, error) {
	if webhookID == "" || token == "" {
		return nil, nil
	}
	// Webhook execution needs no bot token.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: session: %w", err)
	}
	return &DiscordNotifier{session: session, webhookID: webhookID, token: token}, nil
}

// Name implements providers.Notifier
func (n *DiscordNotifier) Name() string { return "discord" }

// Notify implements providers.Notifier
func (n *DiscordNotifier) Notify(ctx context.Context, msg providers.TeamMessage) error {
	embed := &discordgo.MessageEmbed{
		Title:       truncate(msg.Subject, 256),
		Description: truncate(msg.Body, 4000),
		Color:       discordColor,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if msg.Project != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Project", Value: msg.Project, Inline: true})
	}
	if msg.Sender != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "From", Value: msg.Sender, Inline: true})
	}

	_, err := n.session.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
		Username: "IntakeDesk",
		Embeds:   []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: webhook: %w", err)
	}
	return nil
}
