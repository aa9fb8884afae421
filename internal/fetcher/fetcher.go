package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/brogergvhs/bookharvest/internal/providers"
	"github.com/brogergvhs/bookharvest/internal/util"

	"golang.org/x/net/html/charset"
)

const DefaultMaxBody = 10 << 20

// ClientFactory builds a fresh HTTP client. It is called once at start and
// again on every Reset.
type ClientFactory func() (*http.Client, error)

// Fetcher issues single GET requests. It never retries.
type Fetcher struct {
	newClient ClientFactory
	maxBody   int64
	onBytes   func(n int64)
	debugf    func(string, ...any)

	mu     sync.Mutex
	client *http.Client
	resets int
}

type Option func(*Fetcher)

func WithMaxBody(n int64) Option {
	return func(f *Fetcher) { f.maxBody = n }
}

// WithByteCounter reports every chunk read from a response body.
func WithByteCounter(fn func(n int64)) Option {
	return func(f *Fetcher) { f.onBytes = fn }
}

func WithDebug(debugf func(string, ...any)) Option {
	return func(f *Fetcher) { f.debugf = debugf }
}

func New(factory ClientFactory, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		newClient: factory,
		maxBody:   DefaultMaxBody,
		debugf:    func(string, ...any) {},
	}
	for _, o := range opts {
		o(f)
	}

	c, err := factory()
	if err != nil {
		return nil, fmt.Errorf("fetcher: build client: %w", err)
	}
	f.client = c

	return f, nil
}

func (f *Fetcher) current() *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client
}

// Resets is the number of times the client has been rebuilt.
func (f *Fetcher) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

// Reset discards the current client with its pooled connections and installs
// a freshly built one.
func (f *Fetcher) Reset() error {
	c, err := f.newClient()
	if err != nil {
		return fmt.Errorf("fetcher: rebuild client: %w", err)
	}

	f.mu.Lock()
	old := f.client
	f.client = c
	f.resets++
	f.mu.Unlock()

	util.CloseIdle(old)
	f.debugf("HTTP client rebuilt (reset #%d)", f.Resets())

	return nil
}

// Fetch performs one GET bounded by timeout. Failures are *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, u string, timeout time.Duration) (*providers.Page, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Kind: Other, URL: u, Err: err}
	}

	resp, err := f.current().Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), URL: u, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{Kind: Other, URL: u, Status: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	var buf bytes.Buffer
	n, err := copyWithProgress(&buf, io.LimitReader(resp.Body, f.maxBody+1), f.onBytes)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), URL: u, Err: err}
	}
	if n > f.maxBody {
		return nil, &FetchError{Kind: Other, URL: u, Err: fmt.Errorf("body exceeds %s", util.Human(f.maxBody))}
	}

	ct := resp.Header.Get("Content-Type")
	body := decode(buf.Bytes(), ct)

	return &providers.Page{
		URL:         u,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: ct,
		Body:        body,
	}, nil
}

// decode converts b to UTF-8 using the declared or sniffed charset. Bytes it
// cannot decode are returned unchanged.
func decode(b []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(b), contentType)
	if err != nil {
		return b
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return b
	}
	return out
}
