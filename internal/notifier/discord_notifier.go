package notifier

import (
	"context"
	"fmt"

	"github.com/aleister1102/dataspy/internal/models"
	"github.com/aleister1102/dataspy/internal/notifier/discord"
	"github.com/rs/zerolog"
)

// DiscordNotifier posts change events to a Discord webhook as embeds.
type DiscordNotifier struct {
	webhookURL     string
	mentionRoleIDs []string
	poster         JSONPoster
	logger         zerolog.Logger
}

// NewDiscordNotifier creates a DiscordNotifier.
func NewDiscordNotifier(webhookURL string, mentionRoleIDs []string, poster JSONPoster, logger zerolog.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL:     webhookURL,
		mentionRoleIDs: mentionRoleIDs,
		poster:         poster,
		logger:         logger.With().Str("module", "DiscordNotifier").Logger(),
	}
}

// Name implements Notifier.
func (dn *DiscordNotifier) Name() string { return "discord" }

// Notify implements Notifier.
func (dn *DiscordNotifier) Notify(ctx context.Context, task models.MonitorTask, event models.ChangeEvent) error {
	payload, err := BuildDiscordPayload(task, event, dn.mentionRoleIDs)
	if err != nil {
		return err
	}
	if err := dn.poster.PostJSON(ctx, dn.webhookURL, payload, nil); err != nil {
		dn.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to send Discord notification")
		return err
	}
	dn.logger.Info().Str("task_id", task.ID).Str("change_type", string(event.ChangeType)).Msg("Discord notification sent successfully")
	return nil
}

// BuildDiscordPayload renders one change event as a webhook message.
func BuildDiscordPayload(task models.MonitorTask, event models.ChangeEvent, mentionRoleIDs []string) (discord.DiscordMessagePayload, error) {
	title := task.Name
	if title == "" {
		title = task.URL
	}

	embed, err := discord.NewDiscordEmbedBuilder().
		WithTitle(discord.Truncate(fmt.Sprintf("%s: %s", changeLabel(event.ChangeType), title), discord.MaxTitleLength)).
		WithURL(task.URL).
		WithDescription(discord.Truncate(event.DiffSummary, MaxSummaryLength)).
		WithColor(changeColor(event.ChangeType)).
		WithTimestamp(event.Timestamp).
		AddTruncatedField("Check type", string(task.CheckType()), true).
		AddTruncatedField("Old", event.OldValue, true).
		AddTruncatedField("New", event.NewValue, true).
		WithFooter("Task " + task.ID).
		Build()
	if err != nil {
		return discord.DiscordMessagePayload{}, err
	}

	return discord.NewDiscordMessagePayloadBuilder().
		WithUsername(DiscordUsername).
		WithRoleMentions(mentionRoleIDs).
		AddEmbed(embed).
		Build(), nil
}

func changeLabel(ct models.ChangeType) string {
	switch ct {
	case models.ChangePriceDropped:
		return "Price dropped"
	case models.ChangePriceRose:
		return "Price rose"
	case models.ChangeAvailable:
		return "Available"
	case models.ChangeUnavailable:
		return "Unavailable"
	case models.ChangeNewElement:
		return "New element"
	}
	return "Content changed"
}

func changeColor(ct models.ChangeType) int {
	switch ct {
	case models.ChangePriceDropped:
		return PriceDropColor
	case models.ChangePriceRose:
		return PriceRiseColor
	case models.ChangeAvailable:
		return AvailableColor
	case models.ChangeUnavailable:
		return UnavailableColor
	case models.ChangeNewElement:
		return NewElementColor
	case models.ChangeContentChanged:
		return ChangeEmbedColor
	}
	return DefaultEmbedColor
}
