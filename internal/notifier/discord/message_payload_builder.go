package discord

import "strings"

// DiscordMessagePayloadBuilder assembles a webhook message.
type DiscordMessagePayloadBuilder struct {
	payload DiscordMessagePayload
}

// NewDiscordMessagePayloadBuilder creates a new instance of DiscordMessagePayloadBuilder.
func NewDiscordMessagePayloadBuilder() *DiscordMessagePayloadBuilder {
	return &DiscordMessagePayloadBuilder{
		payload: DiscordMessagePayload{},
	}
}

// WithContent sets the Content for the DiscordMessagePayload.
func (b *DiscordMessagePayloadBuilder) WithContent(content string) *DiscordMessagePayloadBuilder {
	b.payload.Content = content
	return b
}

// WithUsername sets the Username for the DiscordMessagePayload.
func (b *DiscordMessagePayloadBuilder) WithUsername(username string) *DiscordMessagePayloadBuilder {
	b.payload.Username = username
	return b
}

// AddEmbed appends an embed.
func (b *DiscordMessagePayloadBuilder) AddEmbed(embed DiscordEmbed) *DiscordMessagePayloadBuilder {
	b.payload.Embeds = append(b.payload.Embeds, embed)
	return b
}

// WithRoleMentions prefixes Content with role pings and allows only those roles.
func (b *DiscordMessagePayloadBuilder) WithRoleMentions(roleIDs []string) *DiscordMessagePayloadBuilder {
	if len(roleIDs) == 0 {
		return b
	}
	mentions := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		mentions = append(mentions, "<@&"+id+">")
	}
	prefix := strings.Join(mentions, " ")
	if b.payload.Content != "" {
		prefix += " " + b.payload.Content
	}
	b.payload.Content = prefix
	b.payload.AllowedMentions = &AllowedMentions{Parse: []string{}, Roles: roleIDs}
	return b
}

// Build returns the assembled payload.
func (b *DiscordMessagePayloadBuilder) Build() DiscordMessagePayload {
	return b.payload
}
