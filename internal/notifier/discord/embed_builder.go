package discord

import (
	"time"
)

// DiscordEmbedBuilder assembles a DiscordEmbed and checks it against
// Discord's limits on Build.
type DiscordEmbedBuilder struct {
	embed     DiscordEmbed
	validator *DiscordEmbedValidator
}

func NewDiscordEmbedBuilder() *DiscordEmbedBuilder {
	return &DiscordEmbedBuilder{validator: NewDiscordEmbedValidator()}
}

func (deb *DiscordEmbedBuilder) WithTitle(title string) *DiscordEmbedBuilder {
	deb.embed.Title = title
	return deb
}

// WithURL links the title.
func (deb *DiscordEmbedBuilder) WithURL(url string) *DiscordEmbedBuilder {
	deb.embed.URL = url
	return deb
}

func (deb *DiscordEmbedBuilder) WithDescription(description string) *DiscordEmbedBuilder {
	deb.embed.Description = description
	return deb
}

func (deb *DiscordEmbedBuilder) WithTimestamp(ts time.Time) *DiscordEmbedBuilder {
	deb.embed.Timestamp = ts.UTC().Format(time.RFC3339)
	return deb
}

func (deb *DiscordEmbedBuilder) WithColor(color int) *DiscordEmbedBuilder {
	deb.embed.Color = color
	return deb
}

func (deb *DiscordEmbedBuilder) WithFooter(text string) *DiscordEmbedBuilder {
	deb.embed.Footer = &DiscordEmbedFooter{Text: Truncate(text, MaxFooterLength)}
	return deb
}

// AddTruncatedField appends a field cut to Discord's limits. An empty value
// is shown as "-" since Discord rejects empty fields.
func (deb *DiscordEmbedBuilder) AddTruncatedField(name, value string, inline bool) *DiscordEmbedBuilder {
	if value == "" {
		value = "-"
	}
	deb.embed.Fields = append(deb.embed.Fields, DiscordEmbedField{
		Name:   Truncate(name, MaxFieldNameLength),
		Value:  Truncate(value, MaxFieldValueLength),
		Inline: inline,
	})
	return deb
}

// Build returns the embed, or the validation error when it breaks Discord's limits.
func (deb *DiscordEmbedBuilder) Build() (DiscordEmbed, error) {
	if err := deb.validator.ValidateEmbed(deb.embed); err != nil {
		return DiscordEmbed{}, err
	}
	return deb.embed, nil
}
