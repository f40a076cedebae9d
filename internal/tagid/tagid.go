// Package tagid classifies raw request tokens as either game-account tags or
// numeric messaging-platform account identifiers.
//
// A tag is canonically stored uppercase with a leading '#', followed by one or
// more symbols of a fixed 13-symbol alphabet. A numeric identifier is a
// non-negative int64 written in plain ASCII digits.
package tagid

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/taglink/internal/common"
)

const (
	// Prefix marks the start of a canonical tag.
	Prefix = "#"
	// Alphabet lists every symbol a tag body may contain.
	Alphabet = "289PYLQGRJCUV"
)

// tagPattern is compiled once and only read afterwards.
var tagPattern = regexp.MustCompile(`^#?[` + Alphabet + `]+$`)

// ErrIDOutOfRange is returned for digit-only tokens that do not fit into int64.
var ErrIDOutOfRange = errors.New("numeric id out of range")

// Kind tells which alternative a Token holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumericID
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindNumericID:
		return "numeric_id"
	case KindTag:
		return "tag"
	default:
		return "invalid"
	}
}

// Token is the result of classifying a single raw input.
// Exactly one of ID (KindNumericID), Tag (KindTag) or Err (KindInvalid) is meaningful.
type Token struct {
	Raw  string
	Kind Kind
	ID   int64
	Tag  string
	Err  error
}

// Classify decides whether raw is a numeric id or a tag.
//
// Digit-only input without a leading zero (other than "0" itself) is a
// numeric id and is not validated any further. Everything else is normalized
// and validated as a tag.
func Classify(raw string) Token {
	if isNumeric(raw) {
		id, err := parseDigits(raw)
		if err != nil {
			return Token{Raw: raw, Kind: KindInvalid, Err: fmt.Errorf("%w: %w", common.ErrInvalidTagSyntax, err)}
		}
		return Token{Raw: raw, Kind: KindNumericID, ID: id}
	}

	tag := Normalize(raw)
	if err := Validate(tag); err != nil {
		return Token{Raw: raw, Kind: KindInvalid, Err: err}
	}
	return Token{Raw: raw, Kind: KindTag, Tag: tag}
}

// Normalize returns the canonical form of a tag: '#'-prefixed and uppercased.
// It does not check the alphabet.
func Normalize(raw string) string {
	if !strings.HasPrefix(raw, Prefix) {
		raw = Prefix + raw
	}
	return strings.ToUpper(raw)
}

// Validate reports whether tag is syntactically valid.
// The prefix is optional, symbols must come from Alphabet.
func Validate(tag string) error {
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("%w: %q", common.ErrInvalidTagSyntax, tag)
	}
	return nil
}

// ParseTag normalizes and validates raw in one step.
func ParseTag(raw string) (string, error) {
	tag := Normalize(raw)
	if err := Validate(tag); err != nil {
		return "", err
	}
	return tag, nil
}

// isNumeric implements the accepted id grammar: ASCII digits only, no sign,
// no surrounding whitespace, no leading zeros beyond "0".
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseDigits(s string) (int64, error) {
	var n int64
	for i := 0; i < len(s); i++ {
		d := int64(s[i] - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, ErrIDOutOfRange
		}
		n = n*10 + d
	}
	return n, nil
}
