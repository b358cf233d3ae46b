package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

func newTestPlanner() *Planner {
	return NewPlanner(&domain.TZDatabase{}, zap.NewNop())
}

func TestPlanner_MoscowUser(t *testing.T) {
	store := newFakeStore(domain.Preference{UserID: "100", NotificationTime: "08:00", Timezone: "Europe/Moscow"})
	now := time.Date(2024, 1, 1, 4, 30, 0, 0, time.UTC)

	plan := newTestPlanner().Plan(context.Background(), []string{"100"}, store, nil, "08:00", now)

	require.Contains(t, plan, "100")
	assert.Equal(t, time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC), plan["100"].At)
	assert.Equal(t, 1800*time.Second, plan["100"].Wait)
	assert.Equal(t, "Europe/Moscow", plan["100"].Zone)
}

func TestPlanner_InvalidTimeSkippedDefaultStillPlanned(t *testing.T) {
	store := newFakeStore(domain.Preference{UserID: "1", NotificationTime: "25:99"})
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

	plan := newTestPlanner().Plan(context.Background(), []string{"1"}, store, []string{"2"}, "08:00", now)

	assert.NotContains(t, plan, "1")
	require.Contains(t, plan, "2")
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), plan["2"].At)
	assert.Equal(t, domain.LabelDefault, plan["2"].Zone)
}

func TestPlanner_UnknownZoneFallsBack(t *testing.T) {
	store := newFakeStore(domain.Preference{UserID: "1", NotificationTime: "09:00", Timezone: "Europe/Atlantis"})
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

	plan := newTestPlanner().Plan(context.Background(), []string{"1"}, store, nil, "08:00", now)

	require.Contains(t, plan, "1")
	assert.Equal(t, domain.LabelFallback, plan["1"].Zone)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), plan["1"].At)
}

func TestPlanner_DefaultRecipients(t *testing.T) {
	store := newFakeStore(
		domain.Preference{UserID: "1", NotificationTime: "07:00"},
		domain.Preference{UserID: "2", Timezone: "Asia/Omsk"}, // stored but no time
	)
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

	plan := newTestPlanner().Plan(context.Background(), []string{"1", "2"}, store, []string{"1", "2", "3", ""}, "08:00", now)

	assert.Len(t, plan, 2)
	assert.Equal(t, domain.LabelServer, plan["1"].Zone, "custom entry wins over default")
	assert.NotContains(t, plan, "2", "stored preference without time gets no default")
	assert.Equal(t, domain.LabelDefault, plan["3"].Zone)
}

func TestPlanner_DefaultVsCustomAsymmetry(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(
		domain.Preference{UserID: "grace", NotificationTime: "07:59"}, // 60s before now
		domain.Preference{UserID: "roll", NotificationTime: "07:58"},  // 120s before now
	)

	plan := newTestPlanner().Plan(context.Background(), []string{"grace", "roll"}, store, []string{"default"}, "08:00", now)

	assert.Equal(t, time.Date(2024, 1, 1, 7, 59, 0, 0, time.UTC), plan["grace"].At)
	assert.Equal(t, time.Date(2024, 1, 2, 7, 58, 0, 0, time.UTC), plan["roll"].At)
	assert.Equal(t, time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), plan["default"].At)
}

func TestPlanner_InvalidDefaultTime(t *testing.T) {
	plan := newTestPlanner().Plan(context.Background(), nil, newFakeStore(), []string{"1"}, "8am", time.Now())
	assert.Empty(t, plan)
}

func TestPlanner_ReadErrorTreatedAsNoPreference(t *testing.T) {
	store := newFakeStore(
		domain.Preference{UserID: "1", NotificationTime: "09:00"},
		domain.Preference{UserID: "2", NotificationTime: "10:00"},
	)
	store.readErr["1"] = domain.ErrStoreUnavailable
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

	plan := newTestPlanner().Plan(context.Background(), []string{"1", "2"}, store, nil, "08:00", now)

	assert.NotContains(t, plan, "1")
	assert.Contains(t, plan, "2")
}

func TestPlanner_ReadsEachUserOnce(t *testing.T) {
	store := newFakeStore(
		domain.Preference{UserID: "1", NotificationTime: "09:00", Timezone: "Europe/Moscow"},
		domain.Preference{UserID: "2", Timezone: "Asia/Omsk"},
	)
	now := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)

	plan := newTestPlanner().Plan(context.Background(), []string{"1", "2"}, store, nil, "08:00", now)

	require.Contains(t, plan, "1")
	assert.Equal(t, time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC), plan["1"].At)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, store.gets, "time and zone come from one snapshot")
}

func TestPlan_Earliest(t *testing.T) {
	_, _, ok := Plan{}.Earliest()
	assert.False(t, ok)

	var nilPlan Plan
	_, _, ok = nilPlan.Earliest()
	assert.False(t, ok)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	plan := Plan{
		"A": {At: base.Add(50 * time.Second), Wait: 50 * time.Second},
		"B": {At: base.Add(10 * time.Second), Wait: 10 * time.Second},
		"C": {At: base.Add(10 * time.Second), Wait: 10 * time.Second},
	}
	for i := 0; i < 10; i++ {
		id, ft, ok := plan.Earliest()
		require.True(t, ok)
		assert.Equal(t, "B", id)
		assert.Equal(t, 10*time.Second, ft.Wait)
	}
}

func TestPlan_Window(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	plan := Plan{
		"A": {At: base.Add(100 * time.Second), Wait: 100 * time.Second},
		"B": {At: base.Add(101 * time.Second), Wait: 101 * time.Second},
		"C": {At: base.Add(200 * time.Second), Wait: 200 * time.Second},
	}

	assert.Equal(t, []string{"A", "B"}, plan.Window(base.Add(100*time.Second), time.Minute))
	assert.Equal(t, []string{"A", "B"}, plan.Window(base.Add(41*time.Second), time.Minute), "tolerance is inclusive")
	assert.Empty(t, plan.Window(base, time.Minute))
}
