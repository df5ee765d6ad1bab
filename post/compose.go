// Package post composes the textual payload of a photo publication.
// Composition is pure and always succeeds, a minimal post is still a
// valid post.
package post

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// MaxPostLength is the protocol's post length budget in characters.
const MaxPostLength = 300

// DateFormat matches the date style of the published posts, e.g.
// "2024-Mar-01".
const DateFormat = "2006-Jan-02"

// ComposedPost is the ephemeral payload handed to the publisher. It is
// never persisted on its own.
type ComposedPost struct {
	Text string
	Alt  string
}

// Compose builds the post text from the capture date, the resolved
// place name and optional flavor text. An unknown place omits the
// location tag, a zero date omits the date phrase. When the text
// exceeds MaxPostLength the flavor text is truncated first, the
// structured place/date suffix is always kept intact.
func Compose(taken time.Time, place, flavor, alt string) ComposedPost {
	flavor = sanitize(flavor)
	suffix := composeSuffix(taken, place)

	var text string
	switch {
	case flavor != "" && suffix != "":
		text = flavor + "\n\n" + suffix
	case flavor != "":
		text = flavor
	default:
		text = suffix
	}
	if length(text) > MaxPostLength {
		text = truncate(flavor, suffix)
	}
	return ComposedPost{
		Text: text,
		Alt:  sanitize(alt),
	}
}

func composeSuffix(taken time.Time, place string) string {
	place = sanitize(place)
	switch {
	case place != "" && !taken.IsZero():
		return fmt.Sprintf("%s (%s)", place, taken.Format(DateFormat))
	case place != "":
		return place
	case !taken.IsZero():
		return taken.Format(DateFormat)
	default:
		return ""
	}
}

// truncate shortens the flavor text so that flavor and suffix fit the
// budget together. A suffix longer than the budget is truncated as a
// last resort.
func truncate(flavor, suffix string) string {
	if suffix == "" {
		return clip(flavor, MaxPostLength)
	}
	if length(suffix) >= MaxPostLength {
		return clip(suffix, MaxPostLength)
	}
	room := MaxPostLength - length(suffix) - length("\n\n")
	if room <= 1 {
		return suffix
	}
	flavor = clip(flavor, room)
	if flavor == "" {
		return suffix
	}
	return flavor + "\n\n" + suffix
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRightFunc(string(runes[:max-1]), unicode.IsSpace) + "…"
}

func length(s string) int {
	return len([]rune(s))
}

// sanitize strips control characters and collapses runs of blank lines
// and spaces, keeping single newlines intact.
func sanitize(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsControl(r):
			// dropped
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
