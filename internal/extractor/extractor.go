package extractor

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/andybalholm/cascadia"
	"github.com/tidwall/gjson"
)

// Extractor derives the comparable fingerprint of fetched content. It is
// stateless and safe for concurrent use.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// volatileDescendants are dropped from inside a matched element before
// hashing. The matched element itself and its attributes are always kept.
const volatileDescendants = "script, style, noscript"

// HashContent returns the hex SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Extract computes the comparable for raw content under strategy. Identical
// input always yields an identical comparable.
func (e *Extractor) Extract(strategy models.CheckStrategy, raw []byte) (models.Comparable, error) {
	switch s := strategy.(type) {
	case models.FullPageStrategy:
		return models.HashComparable(HashContent(raw)), nil
	case models.SelectorStrategy:
		return e.extractSelector(s, raw)
	case models.JSONAPIStrategy:
		return extractJSON(s.Path, raw)
	case models.PriceStrategy:
		return e.extractPrice(s, raw)
	case nil:
		return models.HashComparable(HashContent(raw)), nil
	}
	return models.Comparable{}, newExtractionError(ErrInvalidDocument, "unsupported strategy %T", strategy)
}

func (e *Extractor) extractSelector(s models.SelectorStrategy, raw []byte) (models.Comparable, error) {
	sel, err := firstMatch(s.Selector, raw)
	if err != nil {
		return models.Comparable{}, err
	}
	if sel == nil {
		return missing(s.Selector, s.Presence)
	}

	fragment := sel
	if fragment.Find(volatileDescendants).Length() > 0 {
		fragment = sel.Clone()
		fragment.Find(volatileDescendants).Remove()
	}
	outer, err := goquery.OuterHtml(fragment)
	if err != nil {
		return models.Comparable{}, newExtractionError(ErrInvalidDocument, "render %q: %v", s.Selector, err)
	}
	return models.HashComparable(HashContent([]byte(normalizeWhitespace(outer)))), nil
}

func (e *Extractor) extractPrice(s models.PriceStrategy, raw []byte) (models.Comparable, error) {
	sel, err := firstMatch(s.Selector, raw)
	if err != nil {
		return models.Comparable{}, err
	}
	if sel == nil {
		return missing(s.Selector, s.Presence)
	}

	text := normalizeWhitespace(sel.Text())
	n, ok := ParsePrice(text)
	if !ok {
		return models.Comparable{}, newExtractionError(ErrNotNumeric, "%q matched %q", s.Selector, text)
	}
	return models.NumberComparable(n, HashContent([]byte(text))), nil
}

// firstMatch returns the first element matching selector, or nil when
// nothing matches.
func firstMatch(selector string, raw []byte) (*goquery.Selection, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, newExtractionError(ErrInvalidSelector, "%q: %v", selector, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, newExtractionError(ErrInvalidDocument, "parse html: %v", err)
	}

	sel := doc.FindMatcher(matcher).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	return sel, nil
}

func missing(selector string, presence models.PresencePolicy) (models.Comparable, error) {
	switch presence {
	case models.PresenceAvailability, models.PresenceAppearance:
		return models.AbsentComparable(), nil
	}
	return models.Comparable{}, newExtractionError(ErrSelectorNotFound, "%q", selector)
}

func extractJSON(path string, raw []byte) (models.Comparable, error) {
	if !gjson.ValidBytes(raw) {
		return models.Comparable{}, newExtractionError(ErrInvalidDocument, "body is not valid JSON")
	}

	var result gjson.Result
	if strings.TrimSpace(path) == "" {
		result = gjson.ParseBytes(raw)
	} else {
		result = gjson.GetBytes(raw, path)
		if !result.Exists() {
			return models.Comparable{}, newExtractionError(ErrPathNotFound, "%q", path)
		}
	}

	canonical, err := canonicalJSON(result.Raw)
	if err != nil {
		return models.Comparable{}, newExtractionError(ErrInvalidDocument, "re-encode %q: %v", path, err)
	}
	return models.HashComparable(HashContent(canonical)), nil
}

// canonicalJSON re-encodes a JSON value with sorted object keys and no
// insignificant whitespace. Numbers keep their literal text.
func canonicalJSON(raw string) ([]byte, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
