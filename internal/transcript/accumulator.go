package transcript

import (
	"strings"
)

// Apply folds a recognition event into the committed transcript.
//
// Final results from the event are concatenated (trimmed, no separator)
// and appended to committed after a single space, unless the committed
// transcript already ends with exactly those words. Interim results are
// concatenated the same way and returned as the new interim text, which
// replaces any previous interim text.
//
// Apply is pure: it never fails, and malformed events contribute nothing.
func Apply(ev Event, committed string) (newCommitted, newInterim string) {
	var finalText, interimText strings.Builder
	for _, r := range ev.NewResults() {
		if r.IsFinal {
			finalText.WriteString(strings.TrimSpace(r.Text))
		} else {
			interimText.WriteString(strings.TrimSpace(r.Text))
		}
	}

	return appendFinal(committed, finalText.String()), interimText.String()
}

// appendFinal implements the duplicate-finalization guard.
func appendFinal(committed, finalText string) string {
	finalWords := strings.Fields(finalText)
	if len(finalWords) == 0 {
		return committed
	}

	committedWords := strings.Fields(committed)
	if hasWordSuffix(committedWords, finalWords) {
		return committed
	}

	// Some sources re-emit the whole transcript so far as a single final
	// result, extended with the newly recognized words.
	if len(committedWords) > 0 && hasWordPrefix(finalWords, committedWords) {
		return join(committed, strings.Join(finalWords[len(committedWords):], " "))
	}

	return join(committed, strings.Join(finalWords, " "))
}

func join(committed, text string) string {
	if strings.TrimSpace(committed) == "" {
		return text
	}
	return committed + " " + text
}

// hasWordSuffix reports whether words ends with suffix.
func hasWordSuffix(words, suffix []string) bool {
	if len(suffix) > len(words) {
		return false
	}
	tail := words[len(words)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}

// hasWordPrefix reports whether words starts with prefix.
func hasWordPrefix(words, prefix []string) bool {
	if len(prefix) > len(words) {
		return false
	}
	for i := range prefix {
		if words[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Accumulator holds the committed and interim transcript of one session.
// The zero value is an empty transcript ready for use.
type Accumulator struct {
	Committed string
	Interim   string
}

// Apply folds ev into the accumulator and reports whether the committed
// transcript grew.
func (a *Accumulator) Apply(ev Event) (appended bool) {
	committed, interim := Apply(ev, a.Committed)
	appended = committed != a.Committed
	a.Committed = committed
	a.Interim = interim
	return appended
}

// HasFinal reports whether ev carries any non-empty final text.
func HasFinal(ev Event) bool {
	for _, r := range ev.NewResults() {
		if r.IsFinal && strings.TrimSpace(r.Text) != "" {
			return true
		}
	}
	return false
}

// Reset empties both the committed and interim transcript.
func (a *Accumulator) Reset() {
	a.Committed = ""
	a.Interim = ""
}
