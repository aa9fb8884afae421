package traversal

import (
	"errors"
	"fmt"

	"github.com/brogergvhs/bookharvest/internal/chapters"
	"github.com/brogergvhs/bookharvest/internal/recovery"
	"github.com/brogergvhs/bookharvest/internal/ui"
)

type Mode int

const (
	Fresh Mode = iota
	Resume
)

func (m Mode) String() string {
	if m == Resume {
		return "resume"
	}
	return "fresh"
}

type State int

const (
	Init State = iota
	FreshStart
	Resuming
	Walking
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case FreshStart:
		return "fresh-start"
	case Resuming:
		return "resuming"
	case Walking:
		return "walking"
	case Completed:
		return "completed"
	default:
		return "aborted"
	}
}

// Reason names the condition that ended a session.
type Reason string

const (
	ReasonNoMore       Reason = "no-next-link"
	ReasonCycle        Reason = "cycle-detected"
	ReasonCap          Reason = "cap-reached"
	ReasonChainEnded   Reason = "chain-ended-during-resume"
	ReasonParseFailure Reason = "parse-failure"
	ReasonExhausted    Reason = "recovery-exhausted"
	ReasonFetchFailed  Reason = "fetch-failed"
	ReasonLinkFailed   Reason = "next-link-failed"
	ReasonInterrupted  Reason = "interrupted"
)

var (
	ErrParseFailure      = errors.New("chapter has no recognisable content")
	ErrCycleDetected     = errors.New("next link points to a visited page")
	ErrCapReached        = errors.New("chapter cap reached")
	ErrRecoveryExhausted = recovery.ErrBudgetExhausted
)

// ParseError is a page that was fetched but yielded no chapter body.
type ParseError struct {
	URL string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %v", e.URL, ErrParseFailure) }

func (e *ParseError) Is(target error) bool { return target == ErrParseFailure }

// Session is the state of one traversal run. It is owned by a single Engine.Run
// call and never shared.
type Session struct {
	ID       string
	StartURL string
	Mode     Mode
	State    State

	Visited    map[string]struct{}
	Chapters   []chapters.Chapter
	Preloaded  int
	CurrentURL string

	// Recoveries is the number of escalations in this session. The budget
	// that bounds them lives in the recovery controller.
	Recoveries int

	Stats *ui.Stats
}

func newSession(id, startURL string, stats *ui.Stats) *Session {
	if stats == nil {
		stats = &ui.Stats{}
	}
	return &Session{
		ID:       id,
		StartURL: startURL,
		State:    Init,
		Visited:  make(map[string]struct{}),
		Stats:    stats,
	}
}

func (s *Session) seen(u string) bool {
	_, ok := s.Visited[u]
	return ok
}

func (s *Session) visit(u string) {
	s.Visited[u] = struct{}{}
	s.Stats.VisitedURLs = append(s.Stats.VisitedURLs, u)
}

func (s *Session) add(ch chapters.Chapter) {
	s.Chapters = append(s.Chapters, ch)
	s.Stats.SuccessfulURLs = append(s.Stats.SuccessfulURLs, ch.SourceURL)
	s.Stats.TotalChars += ch.CharCount
	s.Stats.TotalWords += ch.WordCount
}

func (s *Session) fail(u string) {
	s.Stats.FailedURLs = append(s.Stats.FailedURLs, u)
	s.Stats.FailedChapters++
}

// NewChapters are the chapters fetched by this session, excluding any
// loaded from a checkpoint.
func (s *Session) NewChapters() []chapters.Chapter {
	return s.Chapters[s.Preloaded:]
}
