package history_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calclabs/mathstream/pkg/mathstream/history"
)

func TestFilterMatches(t *testing.T) {
	item := history.Item{ID: "h1", InputType: "latex", Tool: "solve"}

	assert.True(t, history.Filter{}.Matches(item))
	assert.True(t, history.Filter{InputType: "latex"}.Matches(item))
	assert.True(t, history.Filter{Tool: "solve"}.Matches(item))
	assert.True(t, history.Filter{InputType: "latex", Tool: "solve"}.Matches(item))

	assert.False(t, history.Filter{InputType: "image"}.Matches(item))
	assert.False(t, history.Filter{Tool: "graphing"}.Matches(item))
	assert.False(t, history.Filter{InputType: "latex", Tool: "graphing"}.Matches(item))
}

func TestGroup(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	items := []history.Item{
		{ID: "today-1", CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "today-2", CreatedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "yesterday-1", CreatedAt: time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)},
		{ID: "yesterday-2", CreatedAt: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{ID: "lastweek-1", CreatedAt: time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)},
		{ID: "lastweek-2", CreatedAt: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
		{ID: "older-1", CreatedAt: time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC)},
		{ID: "older-2", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	grouped := history.Group(items, now)

	require.Len(t, grouped.Today, 2)
	assert.Equal(t, "today-1", grouped.Today[0].ID)

	require.Len(t, grouped.Yesterday, 2)
	assert.Equal(t, "yesterday-1", grouped.Yesterday[0].ID)

	require.Len(t, grouped.LastWeek, 2)
	assert.Equal(t, "lastweek-1", grouped.LastWeek[0].ID)

	require.Len(t, grouped.Older, 2)
	assert.Equal(t, "older-2", grouped.Older[1].ID)
}

func TestGroupEmpty(t *testing.T) {
	grouped := history.Group(nil, time.Now())

	// Groups are empty slices, never nil.
	assert.NotNil(t, grouped.Today)
	assert.NotNil(t, grouped.Yesterday)
	assert.NotNil(t, grouped.LastWeek)
	assert.NotNil(t, grouped.Older)
	assert.Empty(t, grouped.Today)
}
