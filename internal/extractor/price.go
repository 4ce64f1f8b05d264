package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

// priceRunRegex matches the first number. Whitespace only counts as a
// thousands separator before a group of exactly three digits, so "19.99 2
// left" stops at 19.99.
var priceRunRegex = regexp.MustCompile(`[-+]?(?:\d{1,3}(?:[\s\x{00a0}\x{202f}]\d{3}\b)+(?:[.,]\d+)?|\d+(?:[.,']\d+)*)`)

// ParsePrice extracts a numeric price from display text such as
// "$ 19.99", "1,299.99", "1.299,99" or "19,99 €".
func ParsePrice(text string) (float64, bool) {
	run := priceRunRegex.FindString(text)
	if run == "" {
		return 0, false
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\'', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, run)

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// the separator that comes last is the decimal one
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		cleaned = normalizeSingleSeparator(cleaned, ",")
	case lastDot >= 0:
		cleaned = normalizeSingleSeparator(cleaned, ".")
	}

	cleaned = strings.TrimRight(cleaned, ".")
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// normalizeSingleSeparator handles text where only one kind of separator
// appears. Repeated separators, or a single one followed by exactly three
// digits, group thousands. Otherwise it is the decimal point.
func normalizeSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	if len(s)-idx-1 == 3 {
		return strings.Replace(s, sep, "", 1)
	}
	return strings.Replace(s, sep, ".", 1)
}
