package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, opts ...Option) (*Fetcher, *int) {
	t.Helper()
	built := 0
	f, err := New(func() (*http.Client, error) {
		built++
		return &http.Client{}, nil
	}, opts...)
	require.NoError(t, err)
	return f, &built
}

func TestFetchSuccessDecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>caf\xe9</p>"))
	}))
	defer srv.Close()

	var counted int64
	f, _ := newTestFetcher(t, WithByteCounter(func(n int64) { counted += n }))

	p, err := f.Fetch(context.Background(), srv.URL+"/1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", string(p.Body))
	assert.Equal(t, http.StatusOK, p.StatusCode)
	assert.Equal(t, srv.URL+"/1", p.Base())
	assert.Equal(t, int64(len("<p>caf\xe9</p>")), counted)
}

func TestFetchClassifiesFailures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()

	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	f, _ := newTestFetcher(t)

	_, err := f.Fetch(context.Background(), slow.URL, 50*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, Timeout, KindOf(err))

	_, err = f.Fetch(context.Background(), missing.URL, time.Second)
	require.Error(t, err)
	assert.Equal(t, Other, KindOf(err))
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)

	_, err = f.Fetch(context.Background(), closedURL, time.Second)
	require.Error(t, err)
	assert.Equal(t, Connection, KindOf(err))
}

func TestFetchCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, WithMaxBody(10))
	_, err := f.Fetch(context.Background(), srv.URL, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body exceeds")
}

func TestResetRebuildsClient(t *testing.T) {
	f, built := newTestFetcher(t)
	first := f.current()

	require.NoError(t, f.Reset())
	assert.Equal(t, 2, *built)
	assert.Equal(t, 1, f.Resets())
	assert.NotSame(t, first, f.current())
}
