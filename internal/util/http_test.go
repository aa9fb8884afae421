package util

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientSendsStaticHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookieFile, []byte("\n  sid=42  \nignored=1\n"), 0644))

	client, err := NewHTTPClient(HTTPClientOptions{
		Timeout:    5 * time.Second,
		UserAgent:  "bookharvest-test",
		Cookie:     "a=1",
		CookieFile: cookieFile,
		Headers:    map[string]string{"Accept-Language": "en", "X-Extra": "yes"},
	})
	require.NoError(t, err)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "bookharvest-test", got.Get("User-Agent"))
	assert.Equal(t, "a=1; sid=42", got.Get("Cookie"))
	assert.Equal(t, "en", got.Get("Accept-Language"))
	assert.Equal(t, "yes", got.Get("X-Extra"))
	assert.Contains(t, got.Get("Accept"), "text/html")
}

func TestPickUserAgent(t *testing.T) {
	assert.Equal(t, "custom", PickUserAgent("custom"))
	assert.Contains(t, PickUserAgent(""), "Mozilla/5.0")
}
