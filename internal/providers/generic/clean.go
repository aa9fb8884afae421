package generic

import (
	"regexp"
	"strings"
)

// Boilerplate that novel sites mix into chapter bodies: error report links,
// vote/bookmark prompts, ads and "continue on next page" banners. Each pattern
// removes the line prefix up to and including the marker.
var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i).*?章節錯誤`),
	regexp.MustCompile(`(?i).*?舉報`),
	regexp.MustCompile(`(?i).*?收藏`),
	regexp.MustCompile(`(?i).*?投票`),
	regexp.MustCompile(`(?i).*?推薦`),
	regexp.MustCompile(`(?i).*?廣告`),
	regexp.MustCompile(`(?i).*?免費閱讀`),
	regexp.MustCompile(`(?i).*?點擊進入`),
	regexp.MustCompile(`(?i).*?更多精彩`),
	regexp.MustCompile(`(?i)本章未完.*?點擊下一頁繼續閱讀`),
}

var reSpaces = regexp.MustCompile(`[ \t]+`)

// CleanContent strips ad lines and normalises whitespace so that paragraphs
// are separated by exactly one blank line.
func CleanContent(text string) string {
	for _, re := range adPatterns {
		text = re.ReplaceAllString(text, "")
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = reSpaces.ReplaceAllString(strings.TrimSpace(line), " ")
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n\n")
}
