// Package render implements the optional human-text rendering pass
// producing one turn per paragraph with a timestamp and speaker
// header, and the turn's words joined by single spaces. It never alters a
// word string — punctuation and casing are left to whatever stage (if any)
// runs after this one.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/turnmend/turnmend/pkg/token"
)

// Paragraph renders a single turn as "[MM:SS.mmm] SPEAKER\nword word word".
func Paragraph(turn token.Turn, tokens []token.Token) string {
	var words []string
	for i := turn.FirstIdx; i <= turn.LastIdx && i < len(tokens); i++ {
		words = append(words, tokens[i].Word)
	}
	return fmt.Sprintf("[%s] %s\n%s", formatTimestamp(turn.StartMS), turn.Speaker, strings.Join(words, " "))
}

// Text renders the full turn list as plain text, one paragraph per turn
// separated by a blank line.
func Text(turns []token.Turn, tokens []token.Token) string {
	paragraphs := make([]string, len(turns))
	for i, t := range turns {
		paragraphs[i] = Paragraph(t, tokens)
	}
	return strings.Join(paragraphs, "\n\n")
}

// Write renders turns to w, the same shape Text produces, without building
// the whole document in memory first.
func Write(w io.Writer, turns []token.Turn, tokens []token.Token) error {
	for i, t := range turns {
		if i > 0 {
			if _, err := io.WriteString(w, "\n\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, Paragraph(t, tokens)); err != nil {
			return err
		}
	}
	return nil
}

// formatTimestamp renders milliseconds as MM:SS.mmm.
func formatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}
