package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	runs := []Run{
		{ID: "a", StartURL: "https://one.test/1", Host: "one_test", Mode: "fresh", Status: "completed", Chapters: 3, NewChapters: 3, StartedAt: base, FinishedAt: base.Add(time.Minute)},
		{ID: "b", StartURL: "https://two.test/1", Host: "two_test", Mode: "fresh", Status: "aborted", Reason: "recovery-exhausted", Chapters: 1, NewChapters: 1, Recoveries: 5, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(2 * time.Hour)},
		{ID: "c", StartURL: "https://one.test/1", Host: "one_test", Mode: "resume", Status: "completed", Chapters: 5, NewChapters: 2, Artifact: "x.json", StartedAt: base.Add(3 * time.Hour), FinishedAt: base.Add(3 * time.Hour)},
	}
	for _, r := range runs {
		require.NoError(t, j.Record(ctx, r))
	}

	got, err := j.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "x.json", got[0].Artifact)
	assert.Equal(t, "recovery-exhausted", got[1].Reason)
	assert.Equal(t, time.Minute, got[2].Duration())
	assert.True(t, got[2].StartedAt.Equal(base))

	got, err = j.Recent(ctx, "one_test", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestRecordReplacesSameID(t *testing.T) {
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, j.Record(ctx, Run{ID: "a", StartURL: "u", Host: "h", Mode: "fresh", Status: "aborted", StartedAt: now, FinishedAt: now}))
	require.NoError(t, j.Record(ctx, Run{ID: "a", StartURL: "u", Host: "h", Mode: "fresh", Status: "completed", StartedAt: now, FinishedAt: now}))

	got, err := j.Recent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "completed", got[0].Status)
}

func TestReopenKeepsRows(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, j.Record(context.Background(), Run{ID: "a", StartURL: "u", Host: "h", Mode: "fresh", Status: "completed", StartedAt: now, FinishedAt: now}))
	require.NoError(t, j.Close())

	j, err = Open(dir)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	got, err := j.Recent(context.Background(), "h", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
