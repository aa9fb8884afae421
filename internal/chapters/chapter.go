package chapters

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chapter is one harvested unit. Counts are derived once by New and never
// updated afterwards.
type Chapter struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURL string `json:"url"`
	CharCount int    `json:"char_count"`
	WordCount int    `json:"word_count"`
}

func New(title, content, sourceURL string) Chapter {
	return Chapter{
		Title:     title,
		Content:   content,
		SourceURL: sourceURL,
		CharCount: utf8.RuneCountInString(content),
		WordCount: len(strings.Fields(content)),
	}
}

var (
	reMarkerCJK = regexp.MustCompile(`第?\d+[章节節]`)
	reMarkerEN  = regexp.MustCompile(`(?i)chapter\s*\d+`)
)

// StripMarkers removes chapter numbering such as "第12章" or "Chapter 12".
func StripMarkers(title string) string {
	title = reMarkerCJK.ReplaceAllString(title, "")
	title = reMarkerEN.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// SafeName keeps letters, digits, underscores, whitespace and dashes, turns
// spaces into underscores and cuts the result to limit runes.
func SafeName(s string, limit int) string {
	clean := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || unicode.IsSpace(r) {
			clean = append(clean, r)
		}
	}

	s = strings.ReplaceAll(string(clean), " ", "_")

	if limit > 0 && utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	return s
}
