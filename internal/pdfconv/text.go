package pdfconv

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	camelJoin    = regexp.MustCompile(`([a-z])([A-Z])`)
	sentenceJoin = regexp.MustCompile(`([。！？])([a-zA-Z\p{Han}])`)
	blanks       = regexp.MustCompile(`[ \t]+`)
	newlines     = regexp.MustCompile(`\n+`)
	numberLine   = regexp.MustCompile(`^[\d\s]+$`)

	headerFooter = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^第?\s*\d+\s*頁`),
		regexp.MustCompile(`(?i)^Page\s*\d+`),
		regexp.MustCompile(`(?i)Copyright\s*©`),
		regexp.MustCompile(`版權所有`),
		regexp.MustCompile(`(?i)www\.`),
		regexp.MustCompile(`(?i)https?://`),
		regexp.MustCompile(`(?i)ISBN`),
		regexp.MustCompile(`出版社`),
		regexp.MustCompile(`^\d{4}年\d{1,2}月`),
	}

	headings = []*regexp.Regexp{
		regexp.MustCompile(`^第[一二三四五六七八九十\d]+[章節]`),
		regexp.MustCompile(`(?i)^Chapter\s+\d+`),
		regexp.MustCompile(`^第?[一二三四五六七八九十\d]+[章節]`),
		regexp.MustCompile(`^\d+\.\d*\s+`),
		regexp.MustCompile(`^\d+\s+`),
	}
)

const (
	maxHeadingRunes   = 200
	minChapterRunes   = 100
	minChapterWords   = 30
	minTextCharsRatio = 0.3
	paragraphMinRunes = 20
)

// CleanText normalises the raw text of one PDF page. Page numbers, running
// headers and very short lines are dropped, and lines are rejoined into
// paragraphs separated by blank lines. A heading line stays a paragraph of
// its own.
func CleanText(raw string) string {
	text := camelJoin.ReplaceAllString(raw, "$1 $2")
	text = sentenceJoin.ReplaceAllString(text, "$1\n$2")
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(text)
	text = blanks.ReplaceAllString(text, " ")
	text = newlines.ReplaceAllString(text, "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		n := utf8.RuneCountInString(line)
		switch {
		case numberLine.MatchString(line) && n < 10:
		case n < 3:
		case isHeaderFooter(line):
		default:
			lines = append(lines, line)
		}
	}

	var (
		paragraphs []string
		cur        []string
	)
	for _, line := range lines {
		if isHeading(line) {
			if len(cur) > 0 {
				paragraphs = append(paragraphs, strings.Join(cur, " "))
				cur = nil
			}
			paragraphs = append(paragraphs, line)
			continue
		}
		cur = append(cur, line)
		if endsSentence(line) && utf8.RuneCountInString(line) > paragraphMinRunes {
			paragraphs = append(paragraphs, strings.Join(cur, " "))
			cur = nil
		}
	}
	if len(cur) > 0 {
		paragraphs = append(paragraphs, strings.Join(cur, " "))
	}

	return strings.Join(paragraphs, "\n\n")
}

func endsSentence(line string) bool {
	r, _ := utf8.DecodeLastRuneInString(line)
	return strings.ContainsRune("。！？.!?", r)
}

func isHeaderFooter(line string) bool {
	for _, re := range headerFooter {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func isHeading(line string) bool {
	if utf8.RuneCountInString(line) >= maxHeadingRunes {
		return false
	}
	for _, re := range headings {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// DetectHeading returns a chapter heading found in the first three lines of
// a cleaned page.
func DetectHeading(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	for _, line := range lines {
		if line = strings.TrimSpace(line); isHeading(line) {
			return line, true
		}
	}
	return "", false
}

// ValidChapter rejects fragments too short or too symbol-heavy to be prose.
func ValidChapter(content string) bool {
	content = strings.TrimSpace(content)
	total := utf8.RuneCountInString(content)
	if total < minChapterRunes {
		return false
	}
	if len(strings.Fields(content)) < minChapterWords {
		return false
	}

	letters := 0
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters)/float64(total) >= minTextCharsRatio
}
