package differ

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/rs/zerolog"
)

// SummaryInput carries everything needed to describe one change.
type SummaryInput struct {
	Strategy   models.CheckStrategy
	ChangeType models.ChangeType
	Previous   *models.Comparable
	Current    models.Comparable
	// PreviousContent is the raw content of the last snapshot, if any.
	PreviousContent []byte
	CurrentContent  []byte
	SourceURL       string
}

// SummaryBuilder renders the human readable diff_summary of events.
type SummaryBuilder struct {
	md        *converter.Converter
	processor *DiffProcessor
	logger    zerolog.Logger
}

// NewSummaryBuilder creates a SummaryBuilder.
func NewSummaryBuilder(logger zerolog.Logger) *SummaryBuilder {
	return &SummaryBuilder{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		processor: NewDiffProcessor(),
		logger:    logger.With().Str("component", "SummaryBuilder").Logger(),
	}
}

// Summarize builds the diff summary for a classified change.
func (sb *SummaryBuilder) Summarize(in SummaryInput) string {
	switch in.ChangeType {
	case models.ChangePriceDropped, models.ChangePriceRose:
		return priceSummary(in)
	case models.ChangeAvailable:
		return fmt.Sprintf("Element %q is now available", selectorOf(in.Strategy))
	case models.ChangeUnavailable:
		return fmt.Sprintf("Element %q is no longer available", selectorOf(in.Strategy))
	case models.ChangeNewElement:
		return fmt.Sprintf("Element %q appeared", selectorOf(in.Strategy))
	}

	summary := fmt.Sprintf("Content changed (%d bytes)", len(in.CurrentContent))
	if in.PreviousContent == nil {
		return summary
	}

	oldText := sb.renderText(in.Strategy, in.PreviousContent, in.SourceURL)
	newText := sb.renderText(in.Strategy, in.CurrentContent, in.SourceURL)
	stats := sb.processor.LineDiff(oldText, newText)
	return fmt.Sprintf("%s, +%d/-%d lines", summary, stats.Added, stats.Removed)
}

// renderText turns HTML into markdown so line diffs follow visible text.
// JSON and unparsable documents are diffed as is.
func (sb *SummaryBuilder) renderText(strategy models.CheckStrategy, content []byte, sourceURL string) string {
	if _, isJSON := strategy.(models.JSONAPIStrategy); isJSON {
		return string(content)
	}
	text, err := sb.md.ConvertString(string(content), converter.WithDomain(sourceURL))
	if err != nil {
		sb.logger.Debug().Err(err).Msg("Markdown conversion failed, diffing raw content")
		return string(content)
	}
	return text
}

func priceSummary(in SummaryInput) string {
	verb := "dropped"
	if in.ChangeType == models.ChangePriceRose {
		verb = "rose"
	}
	if in.Previous == nil {
		return fmt.Sprintf("Price %s to %.2f", verb, in.Current.Number)
	}

	prev, cur := in.Previous.Number, in.Current.Number
	if prev == 0 {
		return fmt.Sprintf("Price %s from %.2f to %.2f", verb, prev, cur)
	}
	pct := (cur - prev) / prev * 100
	return fmt.Sprintf("Price %s from %.2f to %.2f (%+.2f%%)", verb, prev, cur, pct)
}

func selectorOf(strategy models.CheckStrategy) string {
	selector, _, _ := models.StrategyFields(strategy)
	return selector
}
