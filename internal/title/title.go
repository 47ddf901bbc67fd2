// Package title extracts clean song names from loosely formatted video titles.
package title

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// text after the first "-" up to the first "(" or "[" or the end
	afterDash = regexp.MustCompile(`-(.*?)(?:\(|\[|$)`)
	brackets  = regexp.MustCompile(`[(\[]`)
	// word boundaries spelled out so non-ASCII letters count as word characters
	marketing = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])(?:official|video|music|lyrics|audio|hd|mv|4k)([^\p{L}\p{N}_]|$)`)
	dashRuns  = regexp.MustCompile(`[-–_|]+`)
	spaces    = regexp.MustCompile(`\s+`)
)

// Normalize returns a best-effort song name for a raw video title such as
// "Artist - Song Title (Official Video)".
//
// The heuristic:
//  1. keep the text after the first "-" and before the first "(" or "[";
//     without a "-", keep the text before the first "(" or "["
//  2. drop the standalone words official, video, music, lyrics, audio,
//     hd, mv and 4k (any case)
//  3. turn runs of "-", "–", "_" and "|" into spaces, collapse whitespace, trim
//  4. title-case every word
//
// The result can be wrong; callers let the user override it.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	var segment string
	if m := afterDash.FindStringSubmatch(raw); m != nil {
		segment = m[1]
	} else {
		segment = brackets.Split(raw, 2)[0]
	}

	// a match consumes its boundaries, so adjacent words need another pass
	for {
		next := marketing.ReplaceAllString(segment, "${1}${2}")
		if next == segment {
			break
		}
		segment = next
	}
	segment = dashRuns.ReplaceAllString(segment, " ")
	segment = strings.TrimSpace(spaces.ReplaceAllString(segment, " "))

	return cases.Title(language.Und).String(segment)
}

// Display picks the display title for a playlist entry.
//
// With normalize set the heuristic runs first; an empty result falls back to
// the raw title. An empty raw title becomes fallback (e.g. "Track 3").
func Display(raw string, normalize bool, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if !normalize {
		return raw
	}
	if n := Normalize(raw); n != "" {
		return n
	}
	return raw
}
