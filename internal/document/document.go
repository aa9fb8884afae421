// Package document builds the paginated book container read by the reader
// app and converts it to and from its JSON file form.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/brogergvhs/bookharvest/internal/chapters"
)

const (
	DefaultCover   = "default_cover"
	UnknownTitle   = "Unknown Title"
	UnknownAuthor  = "Unknown Author"
	DefaultMaxPage = 2000
)

// Document is the container format. Field order and names are fixed by the
// reader app.
type Document struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	CoverImage      string   `json:"coverImage"`
	Instruction     string   `json:"instruction"`
	Pages           []string `json:"pages"`
	TotalPages      int      `json:"totalPages"`
	CurrentPage     int      `json:"currentPage"`
	BookmarkedPages []int    `json:"bookmarkedPages"`

	// Partial marks a session that ended before the chain was exhausted.
	Partial bool `json:"-"`
}

// Meta is the book-level information that is not derived from chapters.
type Meta struct {
	ID          string
	Title       string
	Author      string
	Instruction string
}

var ErrEmpty = errors.New("document: file holds no book")

// Assemble paginates chs and wraps the pages in a Document. An empty
// meta.ID or meta.Instruction gets the scraped-book default.
func Assemble(meta Meta, chs []chapters.Chapter, maxCharsPerPage int) *Document {
	pages := Paginate(chs, maxCharsPerPage)

	if meta.Title == "" {
		meta.Title = UnknownTitle
	}
	if meta.Author == "" {
		meta.Author = UnknownAuthor
	}
	if meta.ID == "" {
		meta.ID = "scraped_" + strings.ToLower(strings.ReplaceAll(meta.Title, " ", "_"))
	}
	if meta.Instruction == "" {
		meta.Instruction = fmt.Sprintf("Book scraped from the web: %s, by %s. %d chapters, %d pages.",
			meta.Title, meta.Author, len(chs), len(pages))
	}

	return &Document{
		ID:              meta.ID,
		Title:           meta.Title,
		Author:          meta.Author,
		CoverImage:      DefaultCover,
		Instruction:     meta.Instruction,
		Pages:           pages,
		TotalPages:      len(pages),
		CurrentPage:     0,
		BookmarkedPages: []int{},
	}
}

// Paginate packs each chapter into pages of at most maxCharsPerPage runes. A
// chapter that fits becomes one page. Longer chapters are filled paragraph by
// paragraph with the title on the first page only; a paragraph is never split,
// so a single oversized paragraph yields an oversized page.
func Paginate(chs []chapters.Chapter, maxCharsPerPage int) []string {
	if maxCharsPerPage <= 0 {
		maxCharsPerPage = DefaultMaxPage
	}

	var pages []string
	for _, ch := range chs {
		pages = append(pages, paginateChapter(ch.Title, ch.Content, maxCharsPerPage)...)
	}
	return pages
}

func paginateChapter(title, content string, limit int) []string {
	if utf8.RuneCountInString(content) <= limit {
		return []string{title + "\n\n" + content}
	}

	var (
		pages []string
		cur   strings.Builder
	)
	cur.WriteString(title + "\n\n")
	curLen := utf8.RuneCountInString(title) + 2

	for _, p := range strings.Split(content, "\n\n") {
		n := utf8.RuneCountInString(p)
		if curLen+n+2 > limit && strings.TrimSpace(cur.String()) != title {
			pages = append(pages, strings.TrimSpace(cur.String()))
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(p + "\n\n")
		curLen += n + 2
	}

	if last := strings.TrimSpace(cur.String()); last != "" {
		pages = append(pages, last)
	}
	return pages
}

// BookInfo derives title and author for a freshly harvested book. A usable
// URL path segment wins over the first chapter's title.
func BookInfo(startURL string, first chapters.Chapter) Meta {
	meta := Meta{Title: UnknownTitle, Author: UnknownAuthor}

	if t := chapters.StripMarkers(first.Title); t != "" {
		meta.Title = t
	}

	if u, err := url.Parse(startURL); err == nil {
		for _, part := range strings.Split(u.Path, "/") {
			if utf8.RuneCountInString(part) <= 2 {
				continue
			}
			switch part {
			case "book", "novel", "chapter", "read":
				continue
			}
			meta.Title = strings.NewReplacer("-", " ", "_", " ").Replace(part)
			break
		}
	}

	return meta
}

// Marshal renders d as a one-element JSON array, two-space indented, with
// non-ASCII text kept as is.
func Marshal(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Encode(w io.Writer, d *Document) error {
	out := *d
	if out.BookmarkedPages == nil {
		out.BookmarkedPages = []int{}
	}
	if out.Pages == nil {
		out.Pages = []string{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode([]*Document{&out})
}

// Decode reads the first book of a container file.
func Decode(r io.Reader) (*Document, error) {
	var docs []Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrEmpty
	}
	return &docs[0], nil
}
