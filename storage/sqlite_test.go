package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func sampleRecord(userID string, createdAt time.Time) *models.FoodRecord {
	return &models.FoodRecord{
		ID:              uuid.New().String(),
		UserID:          userID,
		FoodName:        "Борщ",
		FoodDescription: "Суп со свеклой",
		PortionSize:     "medium",
		PortionWeight:   350,
		CaloriesPer100g: 49,
		ProteinPer100g:  1.6,
		FatPer100g:      2.3,
		CarbsPer100g:    5.5,
		TotalCalories:   171.5,
		TotalProtein:    5.6,
		TotalFat:        8.1,
		TotalCarbs:      19.3,
		InputMethod:     "text",
		OriginalInput:   "тарелка борща",
		CreatedAt:       createdAt,
	}
}

func TestCreateAndGetRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	record := sampleRecord("user-1", time.Now().UTC())
	id, err := store.CreateRecord(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, record.ID, id)

	loaded, err := store.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, record.FoodName, loaded.FoodName)
	assert.Equal(t, record.UserID, loaded.UserID)
	assert.InDelta(t, record.TotalCalories, loaded.TotalCalories, 1e-9)
	assert.Equal(t, record.InputMethod, loaded.InputMethod)
	assert.Equal(t, record.CreatedAt.Unix(), loaded.CreatedAt.Unix())
}

func TestDailySummaryAggregatesOneDay(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := store.CreateRecord(ctx, sampleRecord("user-1", day))
	require.NoError(t, err)
	_, err = store.CreateRecord(ctx, sampleRecord("user-1", day.Add(6*time.Hour)))
	require.NoError(t, err)

	// Entry from the previous day must not leak in.
	_, err = store.CreateRecord(ctx, sampleRecord("user-1", day.Add(-24*time.Hour)))
	require.NoError(t, err)

	// Neither must another user's entry.
	_, err = store.CreateRecord(ctx, sampleRecord("user-2", day))
	require.NoError(t, err)

	summary, err := store.DailySummary(ctx, "user-1", day)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.EntriesCount)
	assert.InDelta(t, 343, summary.TotalCalories, 1e-9)
	assert.InDelta(t, 11.2, summary.TotalProtein, 1e-9)
}

func TestRecordsByDayNewestFirstAndScoped(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	breakfast := sampleRecord("user-1", day)
	dinner := sampleRecord("user-1", day.Add(10*time.Hour))
	for _, r := range []*models.FoodRecord{
		breakfast,
		dinner,
		sampleRecord("user-1", day.Add(-24*time.Hour)), // previous day
		sampleRecord("user-2", day),                    // other user
	} {
		_, err := store.CreateRecord(ctx, r)
		require.NoError(t, err)
	}

	records, err := store.RecordsByDay(ctx, "user-1", day)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, dinner.ID, records[0].ID, "newest entry comes first")
	assert.Equal(t, breakfast.ID, records[1].ID)
}

func TestRecordsByDayEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	records, err := store.RecordsByDay(ctx, "user-1", time.Now().UTC())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteRecordScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	record := sampleRecord("user-1", time.Now().UTC())
	_, err := store.CreateRecord(ctx, record)
	require.NoError(t, err)

	// Another user cannot delete the entry even with the right id.
	deleted, err := store.DeleteRecord(ctx, "user-2", record.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.DeleteRecord(ctx, "user-1", record.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Gone now, and a repeat delete reports nothing removed.
	deleted, err = store.DeleteRecord(ctx, "user-1", record.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.GetRecord(ctx, record.ID)
	assert.Error(t, err)
}

func TestDailySummaryEmptyDay(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	summary, err := store.DailySummary(ctx, "user-1", time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.EntriesCount)
	assert.InDelta(t, 0, summary.TotalCalories, 1e-9)
}

func TestProfileUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	missing, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := models.UserProfile{
		Age:           30,
		WeightKg:      70,
		HeightCm:      179,
		Gender:        models.GenderMale,
		ActivityLevel: models.ActivitySedentary,
		Goal:          models.GoalMaintainWeight,
	}
	require.NoError(t, store.SaveProfile(ctx, "user-1", profile))

	loaded, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, profile, *loaded)

	// Second save replaces the row instead of failing on the key.
	profile.WeightKg = 68
	profile.Goal = models.GoalWeightLoss
	require.NoError(t, store.SaveProfile(ctx, "user-1", profile))

	loaded, err = store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 68, loaded.WeightKg, 1e-9)
	assert.Equal(t, models.GoalWeightLoss, loaded.Goal)
}
