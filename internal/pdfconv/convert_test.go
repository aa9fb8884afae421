package pdfconv

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brogergvhs/bookharvest/internal/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pages []string
	info  map[string]string
	bad   map[int]bool
}

func (s *fakeSource) NumPages() int { return len(s.pages) }

func (s *fakeSource) PageText(i int) (string, error) {
	if s.bad[i] {
		return "", errors.New("broken page")
	}
	return s.pages[i-1], nil
}

func (s *fakeSource) Info(key string) string { return s.info[key] }

func prose(words int) string {
	return strings.TrimSpace(strings.Repeat("the river bends slowly past the mill and ", words/8+1)) + "."
}

func TestCleanTextDropsNoise(t *testing.T) {
	raw := "Page 12\r\n42\r\nok\r\n" +
		"The first line of a thought that keeps going\n" +
		"and finally ends here with a stop.\n" +
		"Copyright © 2020 Someone\n" +
		"visit www.example.com\n" +
		"A short tail"

	got := CleanText(raw)
	assert.Equal(t,
		"The first line of a thought that keeps going and finally ends here with a stop.\n\nA short tail",
		got)
}

func TestCleanTextSplitsJoinedWords(t *testing.T) {
	assert.Equal(t, "hello World again", CleanText("helloWorld   again"))
	assert.Equal(t, "他走了。 然後呢", CleanText("他走了。然後呢"))
	assert.Equal(t, "第一章 開端\n\nThe opening paragraph ends right about here.", CleanText("第一章 開端\nThe opening paragraph\nends right about here."))
}

func TestDetectHeading(t *testing.T) {
	cases := map[string]string{
		"第三章 風起\n\n正文":            "第三章 風起",
		"Chapter 7 The Road\n\nbody": "Chapter 7 The Road",
		"1.2 Scope\n\nbody":          "1.2 Scope",
		"intro\n\n12 Heading":        "12 Heading",
	}
	for in, want := range cases {
		got, ok := DetectHeading(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := DetectHeading("just prose\n\nmore prose\n\nstill prose\n\nChapter 9 too late")
	assert.False(t, ok)
}

func TestValidChapter(t *testing.T) {
	assert.True(t, ValidChapter(prose(40)))
	assert.False(t, ValidChapter("too short"))
	assert.False(t, ValidChapter(strings.Repeat("12 34 56 ", 20)))
}

func TestConvertSplitsOnHeadings(t *testing.T) {
	src := &fakeSource{
		pages: []string{
			"Opening words\n" + prose(40),
			"Chapter 1 Arrival\n" + prose(40),
			"99",
			prose(40),
			"Chapter 2 Departure\n" + prose(40),
		},
		info: map[string]string{"Author": "A. Writer"},
		bad:  map[int]bool{},
	}

	c := New(nil)
	c.Now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.Convert(src, "/books/river_mill-tales.pdf")
	require.NoError(t, err)

	require.Len(t, res.Chapters, 3)
	assert.Equal(t, "Beginning", res.Chapters[0].Title)
	assert.Equal(t, "Chapter 1 Arrival", res.Chapters[1].Title)
	assert.Equal(t, "Chapter 2 Departure", res.Chapters[2].Title)
	assert.Contains(t, res.Chapters[1].Content, "\n\n")

	assert.Equal(t, 5, res.Stats.TotalPages)
	assert.Equal(t, 4, res.Stats.ProcessedPages)
	assert.Equal(t, 1, res.Stats.SkippedPages)

	doc := res.Document
	assert.Equal(t, "river mill tales", doc.Title)
	assert.Equal(t, "A. Writer", doc.Author)
	assert.True(t, strings.HasPrefix(doc.ID, "pdf_1700000000_"))
	assert.Contains(t, doc.Instruction, "3 chapters")
	assert.Equal(t, len(doc.Pages), doc.TotalPages)
	for _, p := range doc.Pages {
		assert.LessOrEqual(t, len([]rune(p)), DefaultMaxCharsPerPage+100)
	}
}

func TestConvertTitleFallbacks(t *testing.T) {
	src := &fakeSource{
		pages: []string{"1\nThe Lighthouse Keeper\n" + prose(40)},
		info:  map[string]string{},
	}
	res, err := New(nil).Convert(src, "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "The Lighthouse Keeper", res.Document.Title)
	assert.Equal(t, document.UnknownAuthor, res.Document.Author)

	src.info["Title"] = "From Metadata"
	res, err = New(nil).Convert(src, "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "From Metadata", res.Document.Title)
}

func TestConvertSkipsBrokenPages(t *testing.T) {
	src := &fakeSource{
		pages: []string{prose(40), "ignored"},
		bad:   map[int]bool{2: true},
	}
	res, err := New(nil).Convert(src, "book.pdf")
	require.NoError(t, err)
	assert.Len(t, res.Chapters, 1)
	assert.Equal(t, 1, res.Stats.SkippedPages)
}

func TestConvertEmpty(t *testing.T) {
	_, err := New(nil).Convert(&fakeSource{pages: []string{"42", "ok"}}, "empty.pdf")
	assert.ErrorIs(t, err, document.ErrEmpty)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)
	c.Now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }

	doc := &document.Document{Title: "River Tales", Pages: []string{"p"}, TotalPages: 1}
	path, err := c.Save(dir, doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "River_Tales_pdf_20260203_040506.json"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	back, err := document.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "River Tales", back.Title)
}
