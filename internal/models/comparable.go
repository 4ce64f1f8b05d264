package models

import (
	"strconv"
)

// AbsentMarker is persisted as last_value when the watched element was missing.
const AbsentMarker = "<absent>"

// ComparableKind tags the value carried by a Comparable.
type ComparableKind string

const (
	ComparableHash   ComparableKind = "hash"
	ComparableNumber ComparableKind = "number"
	ComparableAbsent ComparableKind = "absent"
)

// Comparable is the extracted fingerprint of a fetch, compared across checks.
type Comparable struct {
	Kind ComparableKind
	// Hash is the hex SHA-256 of the extracted content. For numbers it is the
	// hash of the matched text.
	Hash   string
	Number float64
}

// HashComparable returns a hash-kind comparable.
func HashComparable(hash string) Comparable {
	return Comparable{Kind: ComparableHash, Hash: hash}
}

// NumberComparable returns a number-kind comparable.
func NumberComparable(n float64, textHash string) Comparable {
	return Comparable{Kind: ComparableNumber, Number: n, Hash: textHash}
}

// AbsentComparable returns the comparable of a missing element.
func AbsentComparable() Comparable {
	return Comparable{Kind: ComparableAbsent}
}

// FormatNumber renders a price in canonical decimal text.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Equal reports whether two comparables represent the same observed state.
func (c Comparable) Equal(o Comparable) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case ComparableNumber:
		return c.Number == o.Number
	case ComparableAbsent:
		return true
	}
	return c.Hash == o.Hash
}

// Encode returns the persisted (last_content_hash, last_value) pair.
func (c Comparable) Encode() (hash *string, value *string) {
	switch c.Kind {
	case ComparableNumber:
		v := FormatNumber(c.Number)
		h := c.Hash
		return &h, &v
	case ComparableAbsent:
		v := AbsentMarker
		return nil, &v
	}
	h := c.Hash
	return &h, nil
}

// DecodeComparable rebuilds the comparable stored on a task. It returns nil
// when the task has never completed a successful check.
func DecodeComparable(hash, value *string) *Comparable {
	if value != nil {
		if *value == AbsentMarker {
			c := AbsentComparable()
			return &c
		}
		if n, err := strconv.ParseFloat(*value, 64); err == nil {
			h := ""
			if hash != nil {
				h = *hash
			}
			c := NumberComparable(n, h)
			return &c
		}
	}
	if hash != nil && *hash != "" {
		c := HashComparable(*hash)
		return &c
	}
	return nil
}
