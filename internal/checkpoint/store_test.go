package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brogergvhs/bookharvest/internal/chapters"
	"github.com/brogergvhs/bookharvest/internal/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func TestHostID(t *testing.T) {
	assert.Equal(t, "www_example_com", HostID("https://WWW.Example.com/book/1"))
	assert.Equal(t, "site_test", HostID("http://site.test:8080/a"))
	assert.Equal(t, "", HostID("::bad"))
}

func TestFilenameAndStatus(t *testing.T) {
	assert.Equal(t, StatusComplete, Status(false, false))
	assert.Equal(t, StatusPartial, Status(true, false))
	assert.Equal(t, StatusUpdatedComplete, Status(false, true))
	assert.Equal(t, StatusUpdatedPartial, Status(true, true))

	assert.Equal(t, "the_long_road_site_test_complete_20260304_050607.json",
		Filename("the long road!", "site_test", StatusComplete, fixed))
}

func TestPersistLocateLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, WithClock(func() time.Time { return fixed }))

	chs := []chapters.Chapter{
		chapters.New("第一章", "內容一\n\n第二段", "u1"),
		chapters.New("第二章", "內容二", "u2"),
	}
	doc := document.Assemble(document.Meta{Title: "My Book"}, chs, 2000)

	path, err := s.Persist(doc, HostID("https://site.test/b/1"), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "My_Book_site_test_complete_20260304_050607.json"), path)

	found, ok, err := s.Locate("https://site.test/b/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, found)

	_, ok, err = s.Locate("https://other.test/b/1")
	require.NoError(t, err)
	assert.False(t, ok)

	cp, err := s.Load(found)
	require.NoError(t, err)
	require.Len(t, cp.Chapters, 2)
	assert.Equal(t, "第一章", cp.Chapters[0].Title)
	assert.Equal(t, "內容一\n\n第二段", cp.Chapters[0].Content)
	assert.Equal(t, "My Book", cp.Document.Title)
}

func TestPersistNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, WithClock(func() time.Time { return fixed }))
	doc := document.Assemble(document.Meta{Title: "B"}, []chapters.Chapter{chapters.New("t", "c", "u")}, 2000)

	p1, err := s.Persist(doc, "h", false)
	require.NoError(t, err)
	p2, err := s.Persist(doc, "h", false)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoadFallsBackToNumberedTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x_site_test_partial_1.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","title":"T","author":"A","coverImage":"c","instruction":"i","pages":["only one line","Head\n\nBody\n\nMore"],"totalPages":2,"currentPage":0,"bookmarkedPages":[]}]`), 0644))

	cp, err := NewStore(dir).Load(path)
	require.NoError(t, err)
	require.Len(t, cp.Chapters, 2)
	assert.Equal(t, "Chapter 1", cp.Chapters[0].Title)
	assert.Equal(t, "only one line", cp.Chapters[0].Content)
	assert.Equal(t, "Head", cp.Chapters[1].Title)
	assert.Equal(t, "Body\n\nMore", cp.Chapters[1].Content)
}

func TestLocateSkipsNonBooksAndPrefersNewest(t *testing.T) {
	dir := t.TempDir()
	book := []byte(`[{"instruction":"i","pages":[]}]`)

	write := func(name string, data []byte, mod time.Time) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0644))
		require.NoError(t, os.Chtimes(p, mod, mod))
		return p
	}

	write("a_site_test_notes.json", []byte(`{"instruction":"i"}`), fixed.Add(3*time.Hour))
	write("b_site_test_empty.json", []byte(`[]`), fixed.Add(2*time.Hour))
	write("c_site_test_noinstr.json", []byte(`[{"pages":[]}]`), fixed.Add(2*time.Hour))
	write("d_site_test_complete_1.json", book, fixed)
	newest := write("d_site_test_updated_complete_2.json", book, fixed.Add(time.Hour))
	write("e_other_test_complete.json", book, fixed.Add(4*time.Hour))

	got, ok, err := NewStore(dir).Locate("https://site.test/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newest, got)
}

func TestLocateMissingDir(t *testing.T) {
	_, ok, err := NewStore(filepath.Join(t.TempDir(), "nope")).Locate("https://site.test/")
	require.NoError(t, err)
	assert.False(t, ok)
}
