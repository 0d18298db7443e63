package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer wraps transform.Transformer to provide convenient string normalization methods.
// This is not safe for concurrent use.
type TextNormalizer struct {
	transformer transform.Transformer
}

// NewTextNormalizer creates a new TextNormalizer instance.
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{
		transformer: transform.Chain(
			norm.NFKD,                          // Decompose with compatibility decomposition
			runes.Remove(runes.In(unicode.Mn)), // Remove non-spacing marks
			runes.Map(unicode.ToLower),         // Convert to lowercase before normalization
			norm.NFKC,                          // Normalize with compatibility composition
		),
	}
}

// Normalize lowercases the text and strips diacritics.
// Returns empty string if normalization fails or input is empty.
func (n *TextNormalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	result, _, err := transform.String(n.transformer, s)
	if err != nil {
		return ""
	}

	return result
}

// Key reduces text to a lossy comparison key made of ASCII letters and digits only.
// Rendering differences like spacing, punctuation and case disappear, so " CPU Load "
// and "cpuload" produce the same key.
func (n *TextNormalizer) Key(s string) string {
	normalized := n.Normalize(s)
	if normalized == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(normalized))

	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// NormalizeKey is a convenience wrapper around TextNormalizer.Key using a fresh normalizer.
func NormalizeKey(s string) string {
	return NewTextNormalizer().Key(s)
}
