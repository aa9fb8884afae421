// Package checkpoint finds artifacts left by earlier runs, rebuilds their
// chapters for resumption and writes new artifacts without ever replacing an
// existing one.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brogergvhs/bookharvest/internal/chapters"
	"github.com/brogergvhs/bookharvest/internal/document"
	"github.com/brogergvhs/bookharvest/internal/ui"
	"github.com/brogergvhs/bookharvest/internal/util"
)

const (
	StatusComplete        = "complete"
	StatusPartial         = "partial"
	StatusUpdatedComplete = "updated_complete"
	StatusUpdatedPartial  = "updated_partial"

	timestampLayout = "20060102_150405"
	titleRunes      = 50
)

type Store struct {
	Dir string
	Now func() time.Time
	log *ui.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.Now = now }
}

func WithLogger(l *ui.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(dir string, opts ...Option) *Store {
	if dir == "" {
		dir = "."
	}
	s := &Store{Dir: dir, Now: time.Now, log: ui.Discard()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Checkpoint is a loaded prior artifact.
type Checkpoint struct {
	Path     string
	Document *document.Document
	Chapters []chapters.Chapter
}

// HostID is the site identifier embedded in artifact names: the lowercased
// host name, without port, with dots replaced by underscores.
func HostID(startURL string) string {
	u, err := url.Parse(startURL)
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(u.Hostname()), ".", "_")
}

func Status(partial, resumed bool) string {
	switch {
	case resumed && partial:
		return StatusUpdatedPartial
	case resumed:
		return StatusUpdatedComplete
	case partial:
		return StatusPartial
	default:
		return StatusComplete
	}
}

func Filename(title, hostID, status string, ts time.Time) string {
	safe := chapters.SafeName(title, titleRunes)
	if safe == "" {
		safe = "book"
	}
	parts := []string{safe}
	if hostID != "" {
		parts = append(parts, hostID)
	}
	parts = append(parts, status, ts.Format(timestampLayout))
	return strings.Join(parts, "_") + ".json"
}

// Locate returns the first artifact in Dir whose name carries the host id of
// startURL and whose content looks like a book container. Candidates are
// scanned newest first.
func (s *Store) Locate(startURL string) (string, bool, error) {
	host := HostID(startURL)
	if host == "" {
		return "", false, nil
	}

	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("checkpoint: scan %s: %w", s.Dir, err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var cands []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if !strings.Contains(strings.ToLower(name), host) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		cands = append(cands, candidate{path: filepath.Join(s.Dir, name), mod: info.ModTime()})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if !cands[i].mod.Equal(cands[j].mod) {
			return cands[i].mod.After(cands[j].mod)
		}
		return cands[i].path > cands[j].path
	})

	for _, c := range cands {
		if looksLikeBook(c.path) {
			return c.path, true, nil
		}
		s.log.Debugf("checkpoint: skipping %s (not a book container)", c.path)
	}

	return "", false, nil
}

func looksLikeBook(path string) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil || len(raw) == 0 {
		return false
	}
	_, ok := raw[0]["instruction"]
	return ok
}

// Load rebuilds approximate chapters from an artifact, one per page. The text
// before the first blank line is the title; a page without one gets a
// numbered title and keeps its whole text as content.
func (s *Store) Load(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := document.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load %s: %w", path, err)
	}

	chs := make([]chapters.Chapter, 0, len(doc.Pages))
	for i, page := range doc.Pages {
		title, content, ok := strings.Cut(page, "\n\n")
		if !ok {
			title = fmt.Sprintf("Chapter %d", i+1)
			content = page
		}
		chs = append(chs, chapters.New(title, content, fmt.Sprintf("existing_chapter_%d", i+1)))
	}

	return &Checkpoint{Path: path, Document: doc, Chapters: chs}, nil
}

// Persist writes doc as a new artifact in Dir and returns its path.
func (s *Store) Persist(doc *document.Document, hostID string, resumed bool) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}

	data, err := document.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("checkpoint: encode: %w", err)
	}

	name := Filename(doc.Title, hostID, Status(doc.Partial, resumed), s.Now())
	path, err := util.WriteNew(filepath.Join(s.Dir, name), data)
	if err != nil {
		return "", fmt.Errorf("checkpoint: persist: %w", err)
	}

	return path, nil
}

// CleanupTemp removes temp files left by an interrupted Persist.
func (s *Store) CleanupTemp() []string {
	return util.CleanupTempFiles(s.Dir)
}
