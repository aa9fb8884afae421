package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := baseDir
	baseDir = func() string { return dir }
	t.Cleanup(func() { baseDir = prev })
	return filepath.Join(dir, AppName)
}

func TestLoadMergedWithoutProfile(t *testing.T) {
	withRoot(t)

	cfg, used, err := LoadMerged(Options{MaxChapters: 10})
	require.NoError(t, err)
	assert.Contains(t, used, "no active profile")
	assert.Equal(t, 10, cfg.MaxChapters)
	assert.Equal(t, 60*time.Second, cfg.RequestDelay)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.True(t, cfg.Recovery.Enabled)
	assert.Equal(t, 5, cfg.Recovery.MaxRecoveries)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Chapter)
	assert.True(t, cfg.Journal)
}

func TestLoadMergedProfileThenFlags(t *testing.T) {
	root := withRoot(t)

	_, err := InitDefaultConfig()
	require.NoError(t, err)

	path := filepath.Join(root, "configs", "Default.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output: books
request_delay: 5s
retry:
  max_retries: 1
recovery:
  enabled: false
headers:
  Referer: https://example.test/
`), 0644))

	off := false
	cfg, used, err := LoadMerged(Options{Output: "override", Journal: &off})
	require.NoError(t, err)
	assert.Equal(t, path, used)

	assert.Equal(t, "override", cfg.Output)
	assert.Equal(t, 5*time.Second, cfg.RequestDelay)
	assert.Equal(t, 1, cfg.Retry.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Retry.Delay)
	assert.False(t, cfg.Recovery.Enabled)
	assert.Equal(t, 999, cfg.MaxChapters)
	assert.Equal(t, "https://example.test/", cfg.Headers["Referer"])
	assert.False(t, cfg.Journal)

	on := true
	cfg, _, err = LoadMerged(Options{Recovery: &on, IgnoreConfig: true})
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Output)
	assert.True(t, cfg.Recovery.Enabled)
}

func TestSaveRoundTripKeepsDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, SaveYAML(DefaultConfig(), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "request_delay: 1m0s")

	back, err := loadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), back)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.MaxChapters = 0
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Retry.MaxRetries = -1
	assert.Error(t, c.Validate())
}

func TestProfiles(t *testing.T) {
	withRoot(t)

	_, err := InitDefaultConfig()
	require.NoError(t, err)
	_, err = CreateEmptyConfig("slow")
	require.NoError(t, err)
	_, err = CreateEmptyConfig("slow")
	assert.Error(t, err)

	require.NoError(t, SwitchConfig("slow"))
	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "slow", label)

	require.NoError(t, RenameConfig("slow", "gentle"))
	label, _ = CurrentLabel()
	assert.Equal(t, "gentle", label)

	list, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Default", list[0].Label)
	assert.True(t, list[1].Active)

	_, err = ConfigPathByLabel("missing")
	assert.Error(t, err)

	now, err := RemoveConfig("gentle")
	require.NoError(t, err)
	assert.Equal(t, DefaultLabel, now)
	label, _ = CurrentLabel()
	assert.Equal(t, DefaultLabel, label)

	_, err = RemoveConfig(DefaultLabel)
	assert.Error(t, err)
	_, err = RemoveConfig("missing")
	assert.ErrorIs(t, err, ErrProfileMissing)
}

func TestRemoveActiveWithoutDefaultClearsSelection(t *testing.T) {
	withRoot(t)

	_, err := CreateEmptyConfig("only")
	require.NoError(t, err)
	require.NoError(t, SwitchConfig("only"))

	now, err := RemoveConfig("only")
	require.NoError(t, err)
	assert.Empty(t, now)

	_, err = CurrentLabel()
	assert.ErrorIs(t, err, ErrNoConfig)

	cfg, used, err := LoadMerged(Options{})
	require.NoError(t, err)
	assert.Contains(t, used, "no active profile")
	assert.Equal(t, 999, cfg.MaxChapters)
}

func TestProfileLabelsStayInsideConfigsDir(t *testing.T) {
	withRoot(t)

	_, err := CreateEmptyConfig("../escape")
	assert.Error(t, err)
	_, err = CreateEmptyConfig(".hidden")
	assert.Error(t, err)
	assert.ErrorIs(t, AddConfig("bad", filepath.Join(t.TempDir(), "none.yaml")), os.ErrNotExist)
}

func TestAddConfigRejectsForeignYAML(t *testing.T) {
	withRoot(t)

	src := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(src, []byte("max_chapters: [1, 2]\n"), 0644))
	assert.Error(t, AddConfig("other", src))

	require.NoError(t, os.WriteFile(src, []byte("max_chapters: 12\n"), 0644))
	require.NoError(t, AddConfig("other", src))
	path, err := ConfigPathByLabel("other")
	require.NoError(t, err)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.MaxChapters)
	assert.ErrorIs(t, AddConfig("other", src), ErrProfileExists)
}
