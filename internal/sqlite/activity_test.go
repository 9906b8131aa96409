package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	entry1 := &activity.ActivityEntry{
		ActivityType:   activity.TypeMethodsIngested,
		Summary:        "ingested 3 test methods",
		Details:        `{"accepted":3}`,
		Actor:          "scanner",
		DatasetVersion: 0,
	}
	entry2 := &activity.ActivityEntry{
		ActivityType:   activity.TypeDatasetRefreshed,
		Summary:        "loaded 3 test methods",
		DatasetVersion: 1,
	}

	require.NoError(t, repo.Log(ctx, entry1))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)
	require.False(t, entry1.CreatedAt.IsZero())

	entries, err := repo.List(ctx, activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, uint64(1), entries[0].DatasetVersion)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, "scanner", entries[1].Actor)
	require.Equal(t, `{"accepted":3}`, entries[1].Details)
	require.Nil(t, entries[1].ViewID)
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	viewID := "board"
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		ViewID:       &viewID,
		ActivityType: activity.TypeViewOpened,
		Summary:      "opened view board",
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeDatasetRefreshed,
		Summary:      "refreshed",
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		ViewID:       &viewID,
		ActivityType: activity.TypeViewClosed,
		Summary:      "closed view board",
	}))

	entries, err := repo.List(ctx, activity.ListActivityOptions{ViewID: &viewID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "board", *entries[0].ViewID)

	activityType := activity.TypeDatasetRefreshed
	entries, err = repo.List(ctx, activity.ListActivityOptions{ActivityType: &activityType})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, activity.TypeDatasetRefreshed, entries[0].ActivityType)
}
