// Package perception is the pure classification layer between free user
// text and any mutation. It recognizes consent (affirmative / negative /
// modify-with-value / unclear), explicit mutation intent, and cancellation,
// over normalized text. Everything here is side-effect free and
// deterministic: false negatives (ask again) are always preferred over
// false positives (mutate without consent).
package perception

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticsStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases the input and strips diacritics so that "Déjà" and
// "deja" classify identically. Interior punctuation is kept; the consent
// matcher works on word boundaries.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	out, _, err := transform.String(diacriticsStripper, s)
	if err != nil {
		return s
	}
	return out
}

// words splits normalized text into bare word tokens, dropping punctuation.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// ContainsPhrase reports whether phrase appears in s on word boundaries.
// Both arguments are expected to be normalized already.
func ContainsPhrase(s, phrase string) bool {
	return containsPhrase(s, phrase)
}

func containsPhrase(s, phrase string) bool {
	idx := strings.Index(s, phrase)
	for idx >= 0 {
		// Boundary runes must be decoded, not read as raw bytes: letters
		// that survive normalization ("œ", "ß") are multibyte.
		before, _ := utf8.DecodeLastRuneInString(s[:idx])
		beforeOK := idx == 0 || !isWordRune(before)
		after, _ := utf8.DecodeRuneInString(s[idx+len(phrase):])
		afterOK := idx+len(phrase) >= len(s) || !isWordRune(after)
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(s[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
