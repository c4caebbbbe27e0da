// Package normalize rewrites numerals and symbols into words a TTS voice
// pronounces correctly.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// Locale selects the number-naming rules
type Locale string

const (
	Korean   Locale = "ko"
	Japanese Locale = "ja"
	English  Locale = "en"
)

// ParseLocale accepts language tags ("ko-KR") and names ("Korean")
func ParseLocale(s string) Locale {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "ko"):
		return Korean
	case strings.HasPrefix(s, "ja"), strings.HasPrefix(s, "jp"):
		return Japanese
	default:
		return English
	}
}

var (
	decimalRe = regexp.MustCompile(`(\d+(?:,\d{3})*)\.(\d+)`)
	numberRe  = regexp.MustCompile(`\d+(?:,\d{3})+|\d+`)
)

// Normalize verbalizes percent signs, decimals and integers for locale.
// Text written in a different script than the locale is returned as is.
func Normalize(text string, locale Locale) string {
	if !inScript(text, locale) {
		return text
	}
	sp := speakerFor(locale)

	text = strings.ReplaceAll(text, "%", sp.percent)

	text = decimalRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := decimalRe.FindStringSubmatch(m)
		whole := sp.number(parts[1])
		var frac []string
		for _, r := range parts[2] {
			frac = append(frac, sp.digits[r-'0'])
		}
		return whole + sp.point + strings.Join(frac, sp.digitSep)
	})

	return numberRe.ReplaceAllStringFunc(text, sp.number)
}

// inScript reports whether text may be normalized with locale rules: it
// either contains the locale's script or has no letters at all.
func inScript(text string, locale Locale) bool {
	hasLetter := false
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		hasLetter = true
		switch locale {
		case Korean:
			if unicode.Is(unicode.Hangul, r) {
				return true
			}
		case Japanese:
			if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
				return true
			}
		default:
			if unicode.Is(unicode.Latin, r) {
				return true
			}
		}
	}
	return !hasLetter
}
