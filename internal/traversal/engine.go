// Package traversal walks a chapter chain from a start URL, one page at a
// time, and turns the result into a persisted book.
package traversal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brogergvhs/bookharvest/internal/chapters"
	"github.com/brogergvhs/bookharvest/internal/checkpoint"
	"github.com/brogergvhs/bookharvest/internal/document"
	"github.com/brogergvhs/bookharvest/internal/fetcher"
	"github.com/brogergvhs/bookharvest/internal/providers"
	"github.com/brogergvhs/bookharvest/internal/recovery"
	"github.com/brogergvhs/bookharvest/internal/retry"
	"github.com/brogergvhs/bookharvest/internal/ui"

	"github.com/google/uuid"
)

const (
	siteChapter = "chapter"
	siteLink    = "next-link"
	siteSkip    = "resume-skip"
)

// PageFetcher performs single page loads and can rebuild its connection pool.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (*providers.Page, error)
	Reset() error
}

// Observer receives session events. metrics.Metrics satisfies it.
type Observer interface {
	Fetched(site, outcome string)
	Retried(site string)
	Recovered()
	ChapterAdded(mode string)
}

type nopObserver struct{}

func (nopObserver) Fetched(string, string) {}
func (nopObserver) Retried(string)         {}
func (nopObserver) Recovered()             {}
func (nopObserver) ChapterAdded(string)    {}

type Config struct {
	MaxChapters     int
	MaxCharsPerPage int
	RequestDelay    time.Duration

	MaxRetries int
	RetryDelay time.Duration

	Recovery recovery.Config

	ChapterTimeout  time.Duration
	LinkTimeout     time.Duration
	RecoveryTimeout time.Duration
}

type Engine struct {
	cfg     Config
	fetcher PageFetcher
	parser  providers.Parser
	store   *checkpoint.Store

	waiter    recovery.Waiter
	countdown func(label string, total time.Duration) recovery.Countdown
	observer  Observer
	progress  func(done, total int)
	stats     *ui.Stats
	log       *ui.Logger
	newID     func() string
}

type Option func(*Engine)

// WithWaiter replaces the clock used for the inter-chapter delay and the
// recovery cooldown.
func WithWaiter(w recovery.Waiter) Option {
	return func(e *Engine) { e.waiter = w }
}

func WithCountdown(fn func(label string, total time.Duration) recovery.Countdown) Option {
	return func(e *Engine) { e.countdown = fn }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithProgress is called after each chapter with the chapter count and cap.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) { e.progress = fn }
}

func WithStats(s *ui.Stats) Option {
	return func(e *Engine) { e.stats = s }
}

func WithLogger(l *ui.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithIDGen overrides the session id generator.
func WithIDGen(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func New(cfg Config, f PageFetcher, p providers.Parser, store *checkpoint.Store, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		fetcher:  f,
		parser:   p,
		store:    store,
		waiter:   recovery.ClockWaiter{Interval: time.Second},
		observer: nopObserver{},
		progress: func(int, int) {},
		log:      ui.Discard(),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	if e.cfg.MaxChapters <= 0 {
		e.cfg.MaxChapters = 999
	}
	return e
}

// Result is the outcome of a session. Artifact is empty when nothing was
// harvested.
type Result struct {
	Session  *Session
	State    State
	Reason   Reason
	Err      error
	Document *document.Document
	Artifact string
}

func (r *Result) Partial() bool { return r.State == Aborted }

// run is the per-session working set: the session plus the controller whose
// budget is scoped to it.
type run struct {
	*Engine
	sess *Session
	ctl  *recovery.Controller
	log  *ui.Logger
	prev *document.Document
}

// Run harvests the chain starting at startURL. Every ending persists whatever
// chapters exist; the returned error is non-nil only when that save failed.
func (e *Engine) Run(ctx context.Context, startURL string) (*Result, error) {
	stats := e.stats
	if stats == nil {
		stats = &ui.Stats{}
	}
	stats.StartedAt = time.Now()

	sess := newSession(e.newID(), startURL, stats)
	r := &run{
		Engine: e,
		sess:   sess,
		log:    e.log.WithField("session", shortID(sess.ID)),
	}
	r.ctl = recovery.NewController(e.cfg.Recovery, e.fetcher,
		recovery.WithWaiter(e.waiter),
		recovery.WithLogger(r.log),
		recovery.WithCountdown(e.countdown),
		recovery.OnEscalate(func(string) {
			sess.Recoveries++
			sess.Stats.Recoveries++
			e.observer.Recovered()
		}),
	)

	res := r.walk(ctx)
	stats.FinishedAt = time.Now()

	return r.finish(res)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (r *run) walk(ctx context.Context) *Result {
	sess := r.sess

	for _, name := range r.store.CleanupTemp() {
		r.log.Debugf("removed stale %s", name)
	}

	sess.State = FreshStart
	if path, ok, err := r.store.Locate(sess.StartURL); err != nil {
		r.log.Warnf("checkpoint lookup failed: %v", err)
	} else if ok {
		cp, err := r.store.Load(path)
		switch {
		case err != nil:
			r.log.Warnf("checkpoint %s unusable: %v", path, err)
		case len(cp.Chapters) == 0:
			r.log.Infof("checkpoint %s holds no chapters, starting fresh", path)
		default:
			r.log.Infof("found checkpoint %s with %d chapters", path, len(cp.Chapters))
			sess.Mode = Resume
			sess.State = Resuming
			sess.Chapters = append(sess.Chapters, cp.Chapters...)
			sess.Preloaded = len(cp.Chapters)
			r.prev = cp.Document
		}
	}

	sess.CurrentURL = sess.StartURL
	if sess.Preloaded >= r.cfg.MaxChapters {
		r.log.Infof("checkpoint already holds %d chapters (cap %d)", sess.Preloaded, r.cfg.MaxChapters)
		return r.end(Completed, ReasonCap, ErrCapReached)
	}
	if sess.State == Resuming {
		if res := r.skip(ctx); res != nil {
			return res
		}
	}

	sess.State = Walking
	r.log.Infof("walking from %s (cap %d, have %d)", sess.CurrentURL, r.cfg.MaxChapters, len(sess.Chapters))

	for {
		cur := sess.CurrentURL

		if len(sess.Chapters) >= r.cfg.MaxChapters {
			r.log.Infof("%v (%d)", ErrCapReached, r.cfg.MaxChapters)
			return r.end(Completed, ReasonCap, ErrCapReached)
		}
		if sess.seen(cur) {
			r.log.Warnf("%v: %s", ErrCycleDetected, cur)
			return r.end(Completed, ReasonCycle, ErrCycleDetected)
		}
		sess.visit(cur)

		index := len(sess.Chapters) + 1
		ch, err := r.chapter(ctx, cur, index)
		if err != nil {
			sess.fail(cur)
			return r.chapterFailed(cur, err)
		}

		sess.add(ch)
		r.observer.ChapterAdded(sess.Mode.String())
		r.progress(len(sess.Chapters), r.cfg.MaxChapters)
		r.log.WithFields(ui.Fields{"chars": ch.CharCount, "words": ch.WordCount}).
			Infof("chapter %d: %s", index, ch.Title)

		next, err := r.nextLink(ctx, cur)
		if err != nil {
			return r.linkFailed(err)
		}

		switch next.Kind {
		case providers.NoMore:
			r.log.Infof("no next link after %s, book finished", cur)
			return r.end(Completed, ReasonNoMore, nil)
		case providers.Failed:
			return r.end(Aborted, ReasonLinkFailed, fmt.Errorf("next link on %s could not be resolved", cur))
		}

		r.log.Debugf("next: %s", next.URL)
		sess.CurrentURL = next.URL

		if err := r.pause(ctx); err != nil {
			return r.end(Aborted, ReasonInterrupted, err)
		}
	}
}

// skip replays the chain from the start URL past the checkpointed chapters.
// It returns a terminal result when the walk cannot continue.
func (r *run) skip(ctx context.Context) *Result {
	sess := r.sess
	r.log.Infof("resuming: skipping %d chapters", sess.Preloaded)

	for i := 0; i < sess.Preloaded; i++ {
		cur := sess.CurrentURL
		if sess.seen(cur) {
			r.log.Warnf("chain loops back to %s while resuming", cur)
			return r.end(Completed, ReasonCycle, nil)
		}
		sess.visit(cur)

		next, err := fetchParse(ctx, r, siteSkip, cur, r.cfg.LinkTimeout, func(page *providers.Page) (providers.NextLink, error) {
			title, _ := r.parser.ExtractChapter(page, i+1)
			r.log.Debugf("skipping chapter %d: %s", i+1, title)
			return r.parser.FindNextURL(page), nil
		})
		if err != nil {
			return r.linkFailed(err)
		}

		switch next.Kind {
		case providers.NoMore:
			r.log.Infof("chain ended after %d chapters, nothing left to harvest", i+1)
			return r.end(Completed, ReasonChainEnded, nil)
		case providers.Failed:
			return r.end(Aborted, ReasonLinkFailed, fmt.Errorf("next link on %s could not be resolved", cur))
		}

		sess.CurrentURL = next.URL
		if err := r.pause(ctx); err != nil {
			return r.end(Aborted, ReasonInterrupted, err)
		}
	}

	r.log.Infof("resume point: chapter %d at %s", sess.Preloaded+1, sess.CurrentURL)
	return nil
}

func (r *run) chapter(ctx context.Context, u string, index int) (chapters.Chapter, error) {
	return fetchParse(ctx, r, siteChapter, u, r.cfg.ChapterTimeout, func(page *providers.Page) (chapters.Chapter, error) {
		title, content := r.parser.ExtractChapter(page, index)
		if strings.TrimSpace(content) == "" {
			return chapters.Chapter{}, &ParseError{URL: u}
		}
		return chapters.New(title, content, u), nil
	})
}

func (r *run) nextLink(ctx context.Context, u string) (providers.NextLink, error) {
	return fetchParse(ctx, r, siteLink, u, r.cfg.LinkTimeout, func(page *providers.Page) (providers.NextLink, error) {
		return r.parser.FindNextURL(page), nil
	})
}

// fetchParse fetches u and parses it under the retry policy, escalating to
// recovery when the policy is spent. Parse failures are retried but never
// escalated.
func fetchParse[T any](ctx context.Context, r *run, site, u string, timeout time.Duration, parse func(*providers.Page) (T, error)) (T, error) {
	log := r.log.WithFields(ui.Fields{"site": site, "url": u})
	policy := retry.Policy{
		MaxRetries: r.cfg.MaxRetries,
		Delay:      r.cfg.RetryDelay,
	}
	policy.OnFailure = func(attempt int, err error) {
		if attempt < policy.Attempts() {
			r.observer.Retried(site)
			log.Warnf("attempt %d/%d failed, retrying in %s: %v", attempt, policy.Attempts(), r.cfg.RetryDelay, err)
			return
		}
		log.Warnf("attempt %d/%d failed: %v", attempt, policy.Attempts(), err)
	}

	once := func(ctx context.Context, timeout time.Duration) (T, error) {
		var zero T
		page, err := r.fetcher.Fetch(ctx, u, timeout)
		if err != nil {
			r.observer.Fetched(site, fetcher.KindOf(err).String())
			return zero, err
		}
		r.observer.Fetched(site, "ok")
		return parse(page)
	}

	recoveryTimeout := r.cfg.RecoveryTimeout
	if recoveryTimeout <= 0 {
		recoveryTimeout = timeout
	}

	return recovery.Run(ctx, r.ctl, recovery.Operation[T]{
		Site:   site,
		Policy: policy,
		Attempt: func(ctx context.Context, _ int) (T, error) {
			return once(ctx, timeout)
		},
		Recover: func(ctx context.Context) (T, error) {
			log.Infof("recovery: re-attempting")
			return once(ctx, recoveryTimeout)
		},
		Escalate: func(err error) bool {
			return !errors.Is(err, ErrParseFailure)
		},
	})
}

func (r *run) pause(ctx context.Context) error {
	if r.cfg.RequestDelay <= 0 {
		return ctx.Err()
	}
	r.log.Debugf("waiting %s before next request", r.cfg.RequestDelay)
	return r.waiter.Wait(ctx, r.cfg.RequestDelay, nil)
}

func (r *run) chapterFailed(u string, err error) *Result {
	switch {
	case errors.Is(err, ErrParseFailure):
		if len(r.sess.Chapters) == 0 {
			r.log.Errorf("first chapter has no content: %s", u)
			return r.end(Aborted, ReasonParseFailure, err)
		}
		// An empty later chapter may be a parsing problem rather than the
		// end of the book; both look the same from here.
		r.log.Warnf("chapter at %s has no content; treating it as the end of the book", u)
		return r.end(Completed, ReasonParseFailure, err)
	default:
		return r.linkFailed(err)
	}
}

func (r *run) linkFailed(err error) *Result {
	switch {
	case errors.Is(err, context.Canceled):
		r.log.Warnf("interrupted, keeping %d chapters", len(r.sess.Chapters))
		return r.end(Aborted, ReasonInterrupted, err)
	case errors.Is(err, ErrRecoveryExhausted):
		r.log.Errorf("giving up: %v", err)
		return r.end(Aborted, ReasonExhausted, err)
	case errors.Is(err, ErrParseFailure):
		return r.end(Aborted, ReasonParseFailure, err)
	default:
		r.log.Errorf("giving up: %v", err)
		return r.end(Aborted, ReasonFetchFailed, err)
	}
}

func (r *run) end(state State, reason Reason, err error) *Result {
	r.sess.State = state
	return &Result{Session: r.sess, State: state, Reason: reason, Err: err}
}

func (r *run) finish(res *Result) (*Result, error) {
	sess := r.sess
	if len(sess.Chapters) == 0 {
		r.log.Warnf("no chapters harvested, nothing to save")
		return res, nil
	}

	meta := document.BookInfo(sess.StartURL, sess.Chapters[0])
	if r.prev != nil {
		meta.Title = r.prev.Title
		meta.Author = r.prev.Author
	}

	doc := document.Assemble(meta, sess.Chapters, r.cfg.MaxCharsPerPage)
	doc.Partial = res.Partial()
	res.Document = doc

	path, err := r.store.Persist(doc, checkpoint.HostID(sess.StartURL), sess.Mode == Resume)
	if err != nil {
		return res, err
	}
	res.Artifact = path

	r.log.WithFields(ui.Fields{
		"state":  res.State,
		"reason": res.Reason,
		"pages":  doc.TotalPages,
	}).Infof("saved %d chapters to %s", len(sess.Chapters), path)

	return res, nil
}
