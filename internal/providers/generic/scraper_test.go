package generic

import (
	"strings"
	"testing"

	"github.com/brogergvhs/bookharvest/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(u, html string) *providers.Page {
	return &providers.Page{URL: u, Body: []byte(html)}
}

func longParagraph(word string) string {
	return strings.Repeat(word, 120)
}

func TestExtractChapterParagraphs(t *testing.T) {
	html := `<html><body>
<h1>第一章 開始</h1>
<div id="content">
  <script>var x = 1;</script>
  <p>` + longParagraph("甲") + `</p>
  <p>   </p>
  <p>` + longParagraph("乙") + `</p>
</div>
</body></html>`

	title, content := NewParser().ExtractChapter(page("http://x/1", html), 1)
	assert.Equal(t, "第一章 開始", title)
	assert.Equal(t, longParagraph("甲")+"\n\n"+longParagraph("乙"), content)
	assert.NotContains(t, content, "var x")
}

func TestExtractChapterFallsBackToNumberedTitle(t *testing.T) {
	long := strings.Repeat("x", 250)
	html := `<div class="content">` + long + `</div>`

	title, content := NewParser().ExtractChapter(page("http://x/1", html), 7)
	assert.Equal(t, "Chapter 7", title)
	assert.Equal(t, long, content)
}

func TestExtractChapterSkipsOverlongTitle(t *testing.T) {
	html := `<h1>` + strings.Repeat("t", 250) + `</h1><h2>Real</h2><div class="txt">short</div>`

	title, content := NewParser().ExtractChapter(page("http://x/1", html), 1)
	assert.Equal(t, "Real", title)
	assert.Equal(t, "short", content, "a short block is kept when nothing longer exists")
}

func TestExtractChapterEmptyWhenNoBody(t *testing.T) {
	_, content := NewParser().ExtractChapter(page("http://x/1", `<html><body><h1>T</h1></body></html>`), 1)
	assert.Empty(t, content)
}

func TestFindNextURL(t *testing.T) {
	cases := []struct {
		name string
		html string
		want providers.NextLink
	}{
		{
			name: "title attribute selector",
			html: `<a title="下一章" href="/book/2.html">→</a>`,
			want: providers.FoundLink("http://site.test/book/2.html"),
		},
		{
			name: "contains text",
			html: `<a href="#">下一頁</a><a href="3.html">下一頁</a>`,
			want: providers.FoundLink("http://site.test/book/3.html"),
		},
		{
			name: "next class",
			html: `<div class="page-nav"><a class="next" href="https://other.test/4">more</a></div>`,
			want: providers.FoundLink("https://other.test/4"),
		},
		{
			name: "keyword text is case insensitive",
			html: `<a href="javascript:void(0)">NEXT</a><a href="5.html">Next Chapter</a>`,
			want: providers.FoundLink("http://site.test/book/5.html"),
		},
		{
			name: "no link",
			html: `<a href="/index.html">目錄</a>`,
			want: providers.NoMoreLinks(),
		},
	}

	p := NewParser()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.FindNextURL(page("http://site.test/book/1.html", tc.html))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCleanContent(t *testing.T) {
	in := "  第一段   文字  \n\n\n\n點此收藏本書\nAd 廣告 here\n第二段\r\n本章未完，點擊下一頁繼續閱讀\n\t第三段\t\t尾"
	got := CleanContent(in)

	require.Equal(t, "第一段 文字\n\n本書\n\nhere\n\n第二段\n\n第三段 尾", got)
}
