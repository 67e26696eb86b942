package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/airyou-code/ai-nutritiolog-bot/models"
)

type fakeDiary struct {
	profiles map[string]models.UserProfile
	records  []*models.FoodRecord
	err      error
}

func newFakeDiary() *fakeDiary {
	return &fakeDiary{profiles: make(map[string]models.UserProfile)}
}

func (f *fakeDiary) SaveProfile(ctx context.Context, userID string, profile models.UserProfile) error {
	if f.err != nil {
		return f.err
	}
	f.profiles[userID] = profile
	return nil
}

func (f *fakeDiary) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (f *fakeDiary) DailySummary(ctx context.Context, userID string, day time.Time) (*models.DailySummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	summary := &models.DailySummary{}
	for _, r := range f.records {
		if r.UserID == userID {
			summary.TotalCalories += r.TotalCalories
			summary.EntriesCount++
		}
	}
	return summary, nil
}

func (f *fakeDiary) RecordsByDay(ctx context.Context, userID string, day time.Time) ([]*models.FoodRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.FoodRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDiary) GetRecord(ctx context.Context, id string) (*models.FoodRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeDiary) DeleteRecord(ctx context.Context, userID, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for i, r := range f.records {
		if r.ID == id && r.UserID == userID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func newTestGateway(diary *fakeDiary) (*Gateway, *FoodSession, *fakeTransport) {
	transport := &fakeTransport{}
	session := NewFoodSession("session-1", "user-1", &Pipeline{}, transport)
	return &Gateway{Diary: diary}, session, transport
}

func diaryEntry(id, userID string) *models.FoodRecord {
	return &models.FoodRecord{
		ID:            id,
		UserID:        userID,
		FoodName:      "Борщ",
		TotalCalories: 171.5,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestDiaryListsOwnEntries(t *testing.T) {
	diary := newFakeDiary()
	diary.records = []*models.FoodRecord{
		diaryEntry("e1", "user-1"),
		diaryEntry("e2", "user-2"),
	}
	gateway, session, transport := newTestGateway(diary)

	gateway.handleDiary(context.Background(), session, transport, nil, zap.NewNop())

	require.Equal(t, "diary", transport.lastKind())
	payload := transport.calls[0].payload.(map[string]interface{})
	entries := payload["entries"].([]*models.FoodRecord)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
}

func TestDiaryRejectsBadDate(t *testing.T) {
	gateway, session, transport := newTestGateway(newFakeDiary())

	gateway.handleDiary(context.Background(), session, transport,
		map[string]interface{}{"date": "вчера"}, zap.NewNop())

	assert.Equal(t, "diary_invalid_date", transport.lastKind())
}

func TestEntryViewHidesOtherUsersEntries(t *testing.T) {
	diary := newFakeDiary()
	diary.records = []*models.FoodRecord{diaryEntry("e2", "user-2")}
	gateway, session, transport := newTestGateway(diary)

	gateway.handleEntry(context.Background(), session, transport, "e2", zap.NewNop())

	assert.Equal(t, "entry_not_found", transport.lastKind())
}

func TestEntryViewRendersOwnEntry(t *testing.T) {
	diary := newFakeDiary()
	diary.records = []*models.FoodRecord{diaryEntry("e1", "user-1")}
	gateway, session, transport := newTestGateway(diary)

	gateway.handleEntry(context.Background(), session, transport, "e1", zap.NewNop())

	require.Equal(t, "entry", transport.lastKind())
	payload := transport.calls[0].payload.(map[string]interface{})
	assert.Equal(t, "e1", payload["entry"].(*models.FoodRecord).ID)
}

func TestDeleteEntryScopedToOwner(t *testing.T) {
	diary := newFakeDiary()
	diary.records = []*models.FoodRecord{
		diaryEntry("e1", "user-1"),
		diaryEntry("e2", "user-2"),
	}
	gateway, session, transport := newTestGateway(diary)

	gateway.handleDeleteEntry(context.Background(), session, transport, "e2", zap.NewNop())
	assert.Equal(t, "entry_not_found", transport.lastKind())
	assert.Len(t, diary.records, 2, "another user's entry must survive")

	gateway.handleDeleteEntry(context.Background(), session, transport, "e1", zap.NewNop())
	assert.Equal(t, "entry_deleted", transport.lastKind())
	assert.Len(t, diary.records, 1)
}

func TestProfileSaveReturnsTargets(t *testing.T) {
	diary := newFakeDiary()
	gateway, session, transport := newTestGateway(diary)

	gateway.handleProfile(context.Background(), session, transport, map[string]interface{}{
		"age": 30, "weight": 70, "height": 179,
		"gender": "male", "activity_level": "sedentary", "goal": "maintain_weight",
	}, zap.NewNop())

	require.Equal(t, "profile_saved", transport.lastKind())
	assert.Contains(t, diary.profiles, "user-1")
}

func TestSummaryIncludesTargetsWhenProfileComplete(t *testing.T) {
	diary := newFakeDiary()
	diary.profiles["user-1"] = models.UserProfile{
		Age: 30, WeightKg: 70, HeightCm: 179,
		Gender: models.GenderMale, ActivityLevel: models.ActivitySedentary,
		Goal: models.GoalMaintainWeight,
	}
	diary.records = []*models.FoodRecord{diaryEntry("e1", "user-1")}
	gateway, session, transport := newTestGateway(diary)

	gateway.handleSummary(context.Background(), session, transport, zap.NewNop())

	require.Equal(t, "summary", transport.lastKind())
	payload := transport.calls[0].payload.(map[string]interface{})
	assert.Contains(t, payload, "targets")
	summary := payload["summary"].(*models.DailySummary)
	assert.Equal(t, 1, summary.EntriesCount)
}
