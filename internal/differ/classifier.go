package differ

import (
	"github.com/aleister1102/dataspy/internal/models"
)

const truncatedHashLen = 16

// Classify decides whether the transition previous -> current is a change
// under the strategy's semantics. A nil previous is a baseline and never
// yields an event. At most one change type is returned; price and
// availability transitions take precedence over content_changed.
func Classify(strategy models.CheckStrategy, previous *models.Comparable, current models.Comparable) (models.ChangeType, bool) {
	if previous == nil || previous.Equal(current) {
		return "", false
	}

	policy := models.StrategyPresence(strategy)
	wasAbsent := previous.Kind == models.ComparableAbsent
	isAbsent := current.Kind == models.ComparableAbsent

	switch {
	case wasAbsent && !isAbsent:
		switch policy {
		case models.PresenceAvailability:
			return models.ChangeAvailable, true
		case models.PresenceAppearance:
			return models.ChangeNewElement, true
		}
		return models.ChangeContentChanged, true
	case !wasAbsent && isAbsent:
		switch policy {
		case models.PresenceAvailability:
			return models.ChangeUnavailable, true
		case models.PresenceAppearance:
			return "", false
		}
		return models.ChangeContentChanged, true
	}

	if previous.Kind == models.ComparableNumber && current.Kind == models.ComparableNumber {
		switch {
		case current.Number < previous.Number:
			return models.ChangePriceDropped, true
		case current.Number > previous.Number:
			return models.ChangePriceRose, true
		}
		return "", false
	}

	return models.ChangeContentChanged, true
}

// Describe renders a comparable as an event old/new value. Hashes are
// shortened to their first 16 characters.
func Describe(c *models.Comparable) string {
	if c == nil {
		return ""
	}
	switch c.Kind {
	case models.ComparableNumber:
		return models.FormatNumber(c.Number)
	case models.ComparableAbsent:
		return "absent"
	}
	if len(c.Hash) <= truncatedHashLen {
		return c.Hash
	}
	return c.Hash[:truncatedHashLen] + "..."
}
