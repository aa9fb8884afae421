package chapters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDerivesCounts(t *testing.T) {
	c := New("第一章", "天氣 很好\n\nhello world", "http://x/1")
	assert.Equal(t, 18, c.CharCount)
	assert.Equal(t, 4, c.WordCount)
	assert.Equal(t, "http://x/1", c.SourceURL)
}

func TestStripMarkers(t *testing.T) {
	assert.Equal(t, "風起", StripMarkers("第12章 風起"))
	assert.Equal(t, "The Beginning", StripMarkers("Chapter 3 The Beginning"))
	assert.Equal(t, "", StripMarkers("chapter1"))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "My_Book-2", SafeName("My Book-2!?", 50))
	assert.Equal(t, "三體_全集", SafeName("三體 (全集)", 50))
	assert.Equal(t, strings.Repeat("a", 5), SafeName(strings.Repeat("a", 9), 5))
}
