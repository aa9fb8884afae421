package generic

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/bookharvest/internal/providers"
)

const (
	maxTitleRunes   = 200
	minContentRunes = 200
)

var (
	TitleSelectors = []string{
		"h1", "h2", "h3",
		".title", ".chapter-title", ".readtitle h1",
		".j_chapterName", ".chapter_name",
		".bookname h1", ".book-title",
	}

	ContentSelectors = []string{
		".content", "#content", ".chapter-content",
		".novel-content", ".read-content", "#chapter_content",
		".text", ".txt", ".detail", ".main-text",
		`div[id*="content"]`, `div[class*="content"]`,
	}

	NextSelectors = []string{
		`a[title*="下一"]`, `a[title*="下一頁"]`, `a[title*="下一章"]`,
		`a:contains("下一")`, `a:contains("下一頁")`, `a:contains("下一章")`,
		".next", "a.next", "#next", "a#next",
		`a[id*="next"]`, `a[class*="next"]`,
		".chapter-nav .next", ".page-nav .next",
		"a#j_chapterNext", ".j_chapterNext",
	}

	NextKeywords = []string{"下一頁", "下一章", "下頁", "下章", "next"}
)

// Parser is a selector-driven providers.Parser for plain HTML novel sites.
type Parser struct {
	titles   []string
	contents []string
	next     providers.Rules[*goquery.Document, string]
	debugf   func(string, ...any)
}

type Option func(*Parser)

// WithDebug routes rule decisions to the given printf-style sink.
func WithDebug(debugf func(string, ...any)) Option {
	return func(p *Parser) { p.debugf = debugf }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		titles:   TitleSelectors,
		contents: ContentSelectors,
		debugf:   func(string, ...any) {},
	}
	for _, o := range opts {
		o(p)
	}
	p.next = nextRules()
	return p
}

func (p *Parser) ExtractChapter(page *providers.Page, index int) (string, string) {
	title := fmt.Sprintf("Chapter %d", index)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		p.debugf("parse %s: %v", page.URL, err)
		return title, ""
	}

	titleRules := make(providers.Rules[*goquery.Document, string], 0, len(p.titles))
	for _, sel := range p.titles {
		titleRules = append(titleRules, providers.Rule[*goquery.Document, string]{
			Name:  sel,
			Match: matchTitle(sel),
		})
	}
	if t, rule, ok := titleRules.Eval(doc); ok {
		p.debugf("title via %q", rule)
		title = t
	}

	// A short block is kept as a fallback in case nothing longer turns up.
	var content string
	contentRules := make(providers.Rules[*goquery.Document, string], 0, len(p.contents))
	for _, sel := range p.contents {
		contentRules = append(contentRules, providers.Rule[*goquery.Document, string]{
			Name: sel,
			Match: func(d *goquery.Document) (string, bool) {
				el := d.Find(sel).First()
				if el.Length() == 0 {
					return "", false
				}
				content = CleanContent(paragraphText(el))
				return content, utf8.RuneCountInString(content) > minContentRunes
			},
		})
	}
	if _, rule, ok := contentRules.Eval(doc); ok {
		p.debugf("content via %q", rule)
	}

	return title, content
}

func (p *Parser) FindNextURL(page *providers.Page) providers.NextLink {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		p.debugf("parse %s: %v", page.URL, err)
		return providers.FailedLink()
	}

	href, rule, ok := p.next.Eval(doc)
	if !ok {
		return providers.NoMoreLinks()
	}

	next, err := resolveURL(page.Base(), href)
	if err != nil {
		p.debugf("bad next href %q: %v", href, err)
		return providers.FailedLink()
	}

	p.debugf("next via %s: %s", rule, next)
	return providers.FoundLink(next)
}

func matchTitle(sel string) func(*goquery.Document) (string, bool) {
	return func(d *goquery.Document) (string, bool) {
		el := d.Find(sel).First()
		if el.Length() == 0 {
			return "", false
		}
		t := strings.TrimSpace(el.Text())
		if t == "" || utf8.RuneCountInString(t) >= maxTitleRunes {
			return "", false
		}
		return t, true
	}
}

// paragraphText joins <p> children with blank lines, or falls back to the
// element's flat text when it has none.
func paragraphText(el *goquery.Selection) string {
	el.Find("script, style, nav, header, footer").Remove()

	ps := el.Find("p")
	if ps.Length() == 0 {
		return el.Text()
	}

	var parts []string
	ps.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	return strings.Join(parts, "\n\n")
}

func nextRules() providers.Rules[*goquery.Document, string] {
	var rs providers.Rules[*goquery.Document, string]

	for _, sel := range NextSelectors {
		rs = append(rs, providers.Rule[*goquery.Document, string]{
			Name: "selector " + sel,
			Match: func(d *goquery.Document) (string, bool) {
				href, ok := d.Find(sel).First().Attr("href")
				return href, ok && usableHref(href)
			},
		})
	}

	for _, kw := range NextKeywords {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
		rs = append(rs, providers.Rule[*goquery.Document, string]{
			Name:  "text " + kw,
			Match: firstAnchor(func(a *goquery.Selection) bool { return re.MatchString(a.Text()) }),
		})
	}

	for _, kw := range NextKeywords {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
		rs = append(rs, providers.Rule[*goquery.Document, string]{
			Name: "title " + kw,
			Match: firstAnchor(func(a *goquery.Selection) bool {
				t, ok := a.Attr("title")
				return ok && re.MatchString(t)
			}),
		})
	}

	return rs
}

func firstAnchor(pred func(*goquery.Selection) bool) func(*goquery.Document) (string, bool) {
	return func(d *goquery.Document) (string, bool) {
		var found string
		d.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if !pred(a) {
				return true
			}
			href, ok := a.Attr("href")
			if ok && usableHref(href) {
				found = href
				return false
			}
			return true
		})
		return found, found != ""
	}
}

func usableHref(href string) bool {
	href = strings.TrimSpace(href)
	return href != "" && href != "#" && href != "javascript:void(0)"
}

func resolveURL(baseURL, href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}

	b, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	return b.ResolveReference(u).String(), nil
}
