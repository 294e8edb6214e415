package chat

import (
	"strings"
)

// Speaker labels the model uses when it starts writing both sides of a dialogue.
var (
	dialogueMarkers = []string{"user:", "human:", "assistant:"}
	speakerNames    = []string{"user", "human", "assistant"}
)

const (
	maxResidualLines = 3
	keptLines        = 2
)

// Sanitize reduces raw model output to one single-speaker utterance. It never
// returns an empty string when raw had visible content.
func Sanitize(raw string) string {
	original := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	text := original

	if hasFoldPrefix(text, "assistant:") {
		text = strings.TrimSpace(text[len("assistant:"):])
	}

	if idx := FindDialogueMarker(text); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}

	text = dropUnmatchedQuote(text)
	text = firstParagraph(text)
	text = limitLines(text)

	if text == "" {
		return original
	}
	return text
}

// FindDialogueMarker returns the byte offset of the earliest speaker marker in
// text, or -1. Markers match case-insensitively: "user:", "human:" and
// "assistant:" anywhere, and a newline followed by a speaker name with or
// without the colon.
func FindDialogueMarker(text string) int {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			for _, name := range speakerNames {
				if hasFoldPrefix(text[i+1:], name) {
					return i
				}
			}
		}
		for _, m := range dialogueMarkers {
			if hasFoldPrefix(text[i:], m) {
				return i
			}
		}
	}
	return -1
}

// hasFoldPrefix compares against an ASCII lowercase prefix without Unicode
// folding, so multi-byte runes never match an ASCII marker.
func hasFoldPrefix(s, lowerPrefix string) bool {
	if len(s) < len(lowerPrefix) {
		return false
	}
	for i := 0; i < len(lowerPrefix); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lowerPrefix[i] {
			return false
		}
	}
	return true
}

func dropUnmatchedQuote(text string) string {
	switch {
	case strings.HasSuffix(text, `"`) && strings.Count(text, `"`)%2 == 1:
		return strings.TrimSpace(strings.TrimSuffix(text, `"`))
	case strings.HasSuffix(text, "”") && strings.Count(text, "”") > strings.Count(text, "“"):
		return strings.TrimSpace(strings.TrimSuffix(text, "”"))
	}
	return text
}

// firstParagraph cuts at the first blank or whitespace-only line.
func firstParagraph(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			return strings.TrimSpace(strings.Join(lines[:i], "\n"))
		}
	}
	return text
}

// limitLines treats a long residue as continued dialogue and keeps its head.
func limitLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > maxResidualLines {
		return strings.Join(lines[:keptLines], "\n")
	}
	return text
}
