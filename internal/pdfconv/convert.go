// Package pdfconv turns a PDF file into the same book container the harvester
// writes. Conversion is a one-shot batch; there is no resume.
package pdfconv

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brogergvhs/bookharvest/internal/chapters"
	"github.com/brogergvhs/bookharvest/internal/document"
	"github.com/brogergvhs/bookharvest/internal/ui"
	"github.com/brogergvhs/bookharvest/internal/util"

	pdflib "github.com/ledongthuc/pdf"
)

const (
	DefaultMaxPages        = 2000
	DefaultMinTextLength   = 30
	DefaultMaxCharsPerPage = 1500

	DefaultTitle = "PDF Book"
	openingTitle = "Beginning"
)

// Source is a paged text document.
type Source interface {
	NumPages() int
	// PageText returns the text of page i, 1-based.
	PageText(i int) (string, error)
	// Info returns a document information entry such as "Title".
	Info(key string) string
}

// File is a PDF opened from disk.
type File struct {
	f *os.File
	r *pdflib.Reader
}

func Open(path string) (*File, error) {
	f, r, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdfconv: open %s: %w", path, err)
	}
	return &File{f: f, r: r}, nil
}

func (p *File) Close() error { return p.f.Close() }

func (p *File) NumPages() int { return p.r.NumPage() }

func (p *File) PageText(i int) (text string, err error) {
	page := p.r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	// the content stream decoder panics on some malformed pages
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdfconv: page %d: %v", i, rec)
		}
	}()
	return page.GetPlainText(nil)
}

func (p *File) Info(key string) string {
	return strings.TrimSpace(p.r.Trailer().Key("Info").Key(key).Text())
}

type Stats struct {
	TotalPages     int
	ProcessedPages int
	SkippedPages   int
	Chapters       int
	TotalChars     int
	TotalWords     int
	StartedAt      time.Time
	FinishedAt     time.Time
}

type Result struct {
	Document *document.Document
	Chapters []chapters.Chapter
	Stats    Stats
}

type Converter struct {
	MaxPages        int
	MinTextLength   int
	MaxCharsPerPage int

	Now func() time.Time
	log *ui.Logger
}

func New(log *ui.Logger) *Converter {
	if log == nil {
		log = ui.Discard()
	}
	return &Converter{
		MaxPages:        DefaultMaxPages,
		MinTextLength:   DefaultMinTextLength,
		MaxCharsPerPage: DefaultMaxCharsPerPage,
		Now:             time.Now,
		log:             log,
	}
}

// Convert extracts chapters from src and assembles them into a document.
// source names the input for the instruction text and the fallback title.
func (c *Converter) Convert(src Source, source string) (*Result, error) {
	stats := Stats{TotalPages: src.NumPages(), StartedAt: c.Now()}

	limit := min(stats.TotalPages, c.MaxPages)
	c.log.Infof("extracting %d of %d pages", limit, stats.TotalPages)

	var (
		chs     []chapters.Chapter
		title   = openingTitle
		content string
	)
	flush := func() {
		body := strings.TrimSpace(content)
		if body == "" || !ValidChapter(body) {
			return
		}
		ch := chapters.New(title, body, source)
		chs = append(chs, ch)
		stats.TotalChars += ch.CharCount
		stats.TotalWords += ch.WordCount
	}

	for i := 1; i <= limit; i++ {
		raw, err := src.PageText(i)
		if err != nil {
			c.log.Warnf("page %d: %v", i, err)
			stats.SkippedPages++
			continue
		}

		text := CleanText(raw)
		if utf8.RuneCountInString(text) < c.MinTextLength {
			stats.SkippedPages++
			continue
		}
		stats.ProcessedPages++

		if heading, ok := DetectHeading(text); ok && strings.TrimSpace(content) != "" {
			flush()
			title, content = heading, text
			c.log.Debugf("chapter %d: %s", len(chs)+1, heading)
		} else if content != "" {
			content += "\n\n" + text
		} else {
			content = text
		}

		if i%50 == 0 {
			c.log.Infof("page %d/%d, %d chapters", i, limit, len(chs))
		}
	}
	flush()
	stats.Chapters = len(chs)

	if len(chs) == 0 {
		return nil, fmt.Errorf("pdfconv: %w", document.ErrEmpty)
	}

	meta := c.bookInfo(src, source)
	doc := document.Assemble(meta, chs, c.MaxCharsPerPage)
	doc.Instruction = fmt.Sprintf("Book converted from PDF: %s, by %s. Source: %s. %d chapters, %d pages.",
		meta.Title, meta.Author, source, len(chs), doc.TotalPages)

	stats.FinishedAt = c.Now()
	return &Result{Document: doc, Chapters: chs, Stats: stats}, nil
}

var separators = regexp.MustCompile(`[_-]`)

func (c *Converter) bookInfo(src Source, source string) document.Meta {
	title := src.Info("Title")
	author := src.Info("Author")

	if title == "" {
		base := filepath.Base(source)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		title = strings.Join(strings.Fields(separators.ReplaceAllString(base, " ")), " ")
	}

	if utf8.RuneCountInString(title) < 3 && src.NumPages() > 0 {
		title = ""
		if raw, err := src.PageText(1); err == nil {
			title = firstTitleLine(raw)
		}
	}

	if utf8.RuneCountInString(title) < 3 {
		title = DefaultTitle
	}
	if author == "" {
		author = document.UnknownAuthor
	}

	return document.Meta{
		ID:     fmt.Sprintf("pdf_%d_%d", c.Now().Unix(), titleHash(title)),
		Title:  title,
		Author: author,
	}
}

func firstTitleLine(raw string) string {
	seen := 0
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if seen++; seen > 10 {
			break
		}
		n := utf8.RuneCountInString(line)
		if n >= 5 && n <= 100 && !numberLine.MatchString(line) {
			return line
		}
	}
	return ""
}

func titleHash(title string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(title))
	return h.Sum32() % 10000
}

// Filename is the artifact name for a converted book.
func Filename(title string, ts time.Time) string {
	safe := chapters.SafeName(title, 50)
	if safe == "" {
		safe = "book"
	}
	return fmt.Sprintf("%s_pdf_%s.json", safe, ts.Format("20060102_150405"))
}

// Save writes doc into dir without replacing an existing file.
func (c *Converter) Save(dir string, doc *document.Document) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("pdfconv: %w", err)
	}
	data, err := document.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("pdfconv: encode: %w", err)
	}
	return util.WriteNew(filepath.Join(dir, Filename(doc.Title, c.Now())), data)
}
