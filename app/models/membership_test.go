package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipActivityLogRoundTrip(t *testing.T) {
	m := &Membership{UserID: 1}
	assert.Empty(t, m.ActivityLog())

	entry := ActivityEntry{
		ContentID: 10,
		Title:     "Counting with Dinosaurs",
		Category:  CategoryVideos,
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.AppendActivity(entry))

	entries := m.ActivityLog()
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ContentID, entries[0].ContentID)
	assert.Equal(t, entry.Title, entries[0].Title)
	assert.Equal(t, entry.Category, entries[0].Category)
}

func TestMembershipActivityLogKeepsNewestEntries(t *testing.T) {
	m := &Membership{UserID: 1}
	for i := 1; i <= ActivityLogLimit+5; i++ {
		entry := ActivityEntry{
			ContentID: uint(i),
			Title:     fmt.Sprintf("Episode %d", i),
			Category:  CategoryVideos,
			Timestamp: time.Now(),
		}
		require.NoError(t, m.AppendActivity(entry))
	}

	entries := m.ActivityLog()
	require.Len(t, entries, ActivityLogLimit)
	// Oldest entries are dropped first
	assert.Equal(t, uint(6), entries[0].ContentID)
	assert.Equal(t, uint(ActivityLogLimit+5), entries[len(entries)-1].ContentID)
}

func TestMembershipActivityLogCorruptColumn(t *testing.T) {
	m := &Membership{UserID: 1, ActivityLogJSON: "{not json"}
	assert.Nil(t, m.ActivityLog())

	// A corrupt log is replaced on the next append instead of erroring
	require.NoError(t, m.AppendActivity(ActivityEntry{ContentID: 3, Title: "Shapes", Category: CategoryPuzzles}))
	assert.Len(t, m.ActivityLog(), 1)
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range ContentCategories {
		assert.True(t, IsValidCategory(c), c)
	}
	assert.False(t, IsValidCategory("games"))
	assert.False(t, IsValidCategory(""))
	assert.False(t, IsValidCategory("Videos"))
}
