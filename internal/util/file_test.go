package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteNewNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.json")

	first, err := WriteNew(path, []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, path, first)

	second, err := WriteNew(path, []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "book_2.json"), second)

	b, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(b))

	b, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp file must not survive")
}

func TestCleanupTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json.tmp"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("x"), 0644))

	removed := CleanupTempFiles(dir)
	assert.Equal(t, []string{"a.json.tmp"}, removed)

	_, err := os.Stat(filepath.Join(dir, "a.json"))
	assert.NoError(t, err)
}

func TestHuman(t *testing.T) {
	assert.Equal(t, "512 B", Human(512))
	assert.Equal(t, "1.50 KB", Human(1536))
	assert.Equal(t, "2.00 MB", Human(2<<20))
	assert.Equal(t, "3.00 GB", Human(3<<30))
	assert.Equal(t, "1024.00 TB", Human(1<<50))
}

func TestPerSecond(t *testing.T) {
	assert.Equal(t, "250", PerSecond(1000, 4*time.Second))
	assert.Equal(t, "0", PerSecond(1000, 0))
}
