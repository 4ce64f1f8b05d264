package discord

import (
	"fmt"

	"github.com/aleister1102/dataspy/internal/common"
)

// Discord embed limits, in bytes.
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
	MaxFields            = 25
	MaxFieldNameLength   = 256
	MaxFieldValueLength  = 1024
	MaxFooterLength      = 2048
	// MaxEmbedLength bounds the combined text of one embed.
	MaxEmbedLength = 6000
)

// DiscordEmbedValidator rejects embeds Discord would answer with a 400.
type DiscordEmbedValidator struct{}

func NewDiscordEmbedValidator() *DiscordEmbedValidator {
	return &DiscordEmbedValidator{}
}

// ValidateEmbed returns a *common.ValidationError naming the first field
// over its limit.
func (dev *DiscordEmbedValidator) ValidateEmbed(embed DiscordEmbed) error {
	if err := checkLength("title", embed.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := checkLength("description", embed.Description, MaxDescriptionLength); err != nil {
		return err
	}
	if len(embed.Fields) > MaxFields {
		return common.NewValidationError("fields", len(embed.Fields), fmt.Sprintf("cannot have more than %d fields", MaxFields))
	}

	total := len(embed.Title) + len(embed.Description)
	for i, field := range embed.Fields {
		if field.Name == "" || field.Value == "" {
			return common.NewValidationError(fmt.Sprintf("fields[%d]", i), field, "name and value must not be empty")
		}
		if err := checkLength(fmt.Sprintf("fields[%d].name", i), field.Name, MaxFieldNameLength); err != nil {
			return err
		}
		if err := checkLength(fmt.Sprintf("fields[%d].value", i), field.Value, MaxFieldValueLength); err != nil {
			return err
		}
		total += len(field.Name) + len(field.Value)
	}

	if embed.Footer != nil {
		if err := checkLength("footer.text", embed.Footer.Text, MaxFooterLength); err != nil {
			return err
		}
		total += len(embed.Footer.Text)
	}

	if total > MaxEmbedLength {
		return common.NewValidationError("embed", total, fmt.Sprintf("combined text cannot exceed %d characters", MaxEmbedLength))
	}
	return nil
}

func checkLength(field, value string, max int) error {
	if len(value) > max {
		return common.NewValidationError(field, len(value), fmt.Sprintf("cannot exceed %d characters", max))
	}
	return nil
}

// Truncate shortens s to at most max bytes, marking the cut with "...".
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
