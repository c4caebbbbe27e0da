// Package chunk splits narration into scene-sized, sentence-aligned chunks.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCharsPerSecond approximates narration speed for the budget
const DefaultCharsPerSecond = 8

// BudgetFor converts a target scene duration into a character budget
func BudgetFor(seconds, charsPerSecond int) int {
	if charsPerSecond <= 0 {
		charsPerSecond = DefaultCharsPerSecond
	}
	if seconds <= 0 {
		seconds = 20
	}
	return seconds * charsPerSecond
}

type sentence struct {
	lead string // whitespace that separated it from the previous sentence
	text string
}

// Split packs whole sentences greedily into chunks shorter than budget runes.
// A sentence longer than the budget becomes a chunk on its own. Blank input
// yields no chunks.
func Split(text string, budget int) []string {
	if budget <= 0 {
		budget = BudgetFor(0, 0)
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	for _, s := range sentences(text) {
		n := utf8.RuneCountInString(s.text)
		if curLen == 0 {
			cur.WriteString(s.text)
			curLen = n
			continue
		}

		joined := curLen + utf8.RuneCountInString(s.lead) + n
		if joined < budget {
			cur.WriteString(s.lead)
			cur.WriteString(s.text)
			curLen = joined
			continue
		}

		chunks = append(chunks, cur.String())
		cur.Reset()
		cur.WriteString(s.text)
		curLen = n
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '?', '!', '。', '？', '！':
		return true
	}
	return false
}

// IsCloser reports closing quotes and brackets that follow a sentence end
func IsCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '」', '』', '》', '〉':
		return true
	}
	return false
}

// sentences cuts text after every run of terminal marks (plus any closing
// quotes) and at every line break.
func sentences(text string) []sentence {
	var (
		out      []sentence
		buf      []rune
		newlined bool
	)

	emit := func() {
		raw := string(buf)
		buf = buf[:0]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return
		}
		lead := raw[:len(raw)-len(strings.TrimLeftFunc(raw, unicode.IsSpace))]
		if newlined || strings.ContainsAny(lead, "\r\n") {
			lead = " "
		}
		newlined = false
		out = append(out, sentence{lead: lead, text: trimmed})
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			emit()
			newlined = true
			continue
		}
		buf = append(buf, r)
		if !isTerminal(r) {
			continue
		}
		for i+1 < len(runes) && (isTerminal(runes[i+1]) || IsCloser(runes[i+1])) {
			i++
			buf = append(buf, runes[i])
		}
		emit()
	}
	emit()

	return out
}
