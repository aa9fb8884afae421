package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Fetched("chapter", "ok")
	m.Fetched("chapter", "ok")
	m.Fetched("next-link", "timeout")
	m.Retried("chapter")
	m.Recovered()
	m.ChapterAdded("fresh")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues("chapter", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("next-link", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues("chapter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recoveries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chapters.WithLabelValues("fresh")))

	n, err := testutil.GatherAndCount(m.Registry)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
}
