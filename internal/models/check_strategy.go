package models

import (
	"fmt"
	"strings"
)

// CheckType names the extraction strategy of a monitor task.
type CheckType string

const (
	CheckTypeFullPage CheckType = "full_page"
	CheckTypeSelector CheckType = "selector"
	CheckTypeJSONAPI  CheckType = "json_api"
	CheckTypePrice    CheckType = "price"
)

// Valid reports whether ct is one of the known check types.
func (ct CheckType) Valid() bool {
	switch ct {
	case CheckTypeFullPage, CheckTypeSelector, CheckTypeJSONAPI, CheckTypePrice:
		return true
	}
	return false
}

// PresencePolicy decides how a missing selector match is treated.
type PresencePolicy string

const (
	// PresenceStrict treats a missing match as an extraction failure.
	PresenceStrict PresencePolicy = "strict"
	// PresenceAvailability tracks absent/present transitions as available/unavailable.
	PresenceAvailability PresencePolicy = "availability"
	// PresenceAppearance emits new_element when a match appears.
	PresenceAppearance PresencePolicy = "appearance"
)

// ParsePresencePolicy parses a policy name. Empty input yields PresenceStrict.
func ParsePresencePolicy(s string) (PresencePolicy, error) {
	switch PresencePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PresenceStrict:
		return PresenceStrict, nil
	case PresenceAvailability:
		return PresenceAvailability, nil
	case PresenceAppearance:
		return PresenceAppearance, nil
	}
	return "", fmt.Errorf("unknown presence policy %q", s)
}

// CheckStrategy is the closed set of extraction strategies. Each variant
// carries exactly the parameters it needs.
type CheckStrategy interface {
	CheckType() CheckType
	isCheckStrategy()
}

// FullPageStrategy fingerprints the whole response body.
type FullPageStrategy struct{}

// SelectorStrategy fingerprints the first element matching a CSS selector.
type SelectorStrategy struct {
	Selector string
	Presence PresencePolicy
}

// JSONAPIStrategy fingerprints the value at a path inside a JSON document.
type JSONAPIStrategy struct {
	Path string
}

// PriceStrategy parses a numeric price from the first element matching a CSS selector.
type PriceStrategy struct {
	Selector string
	Presence PresencePolicy
}

func (FullPageStrategy) CheckType() CheckType { return CheckTypeFullPage }
func (SelectorStrategy) CheckType() CheckType { return CheckTypeSelector }
func (JSONAPIStrategy) CheckType() CheckType  { return CheckTypeJSONAPI }
func (PriceStrategy) CheckType() CheckType    { return CheckTypePrice }

func (FullPageStrategy) isCheckStrategy() {}
func (SelectorStrategy) isCheckStrategy() {}
func (JSONAPIStrategy) isCheckStrategy()  {}
func (PriceStrategy) isCheckStrategy()    {}

// NewCheckStrategy builds a strategy from its flat, persisted representation.
func NewCheckStrategy(checkType CheckType, selector, jsonPath, presence string) (CheckStrategy, error) {
	switch checkType {
	case CheckTypeFullPage:
		return FullPageStrategy{}, nil
	case CheckTypeSelector, CheckTypePrice:
		if strings.TrimSpace(selector) == "" {
			return nil, fmt.Errorf("check type %s requires a selector", checkType)
		}
		policy, err := ParsePresencePolicy(presence)
		if err != nil {
			return nil, err
		}
		if checkType == CheckTypePrice {
			return PriceStrategy{Selector: selector, Presence: policy}, nil
		}
		return SelectorStrategy{Selector: selector, Presence: policy}, nil
	case CheckTypeJSONAPI:
		return JSONAPIStrategy{Path: jsonPath}, nil
	}
	return nil, fmt.Errorf("unknown check type %q", checkType)
}

// StrategyFields flattens a strategy into the columns used for persistence.
func StrategyFields(s CheckStrategy) (selector, jsonPath, presence string) {
	switch v := s.(type) {
	case SelectorStrategy:
		return v.Selector, "", string(v.Presence)
	case PriceStrategy:
		return v.Selector, "", string(v.Presence)
	case JSONAPIStrategy:
		return "", v.Path, ""
	}
	return "", "", ""
}

// StrategyPresence returns the presence policy of selector-based strategies.
func StrategyPresence(s CheckStrategy) PresencePolicy {
	switch v := s.(type) {
	case SelectorStrategy:
		return v.Presence
	case PriceStrategy:
		return v.Presence
	}
	return PresenceStrict
}

// SameStrategy reports whether a and b produce comparables of the same
// meaning. Observed state recorded under one is only reusable under the other
// when this holds.
func SameStrategy(a, b CheckStrategy) bool {
	if strategyType(a) != strategyType(b) {
		return false
	}
	selA, pathA, _ := StrategyFields(a)
	selB, pathB, _ := StrategyFields(b)
	return selA == selB && pathA == pathB && effectivePresence(a) == effectivePresence(b)
}

func strategyType(s CheckStrategy) CheckType {
	if s == nil {
		return CheckTypeFullPage
	}
	return s.CheckType()
}

func effectivePresence(s CheckStrategy) PresencePolicy {
	if p := StrategyPresence(s); p != "" {
		return p
	}
	return PresenceStrict
}
