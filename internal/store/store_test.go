package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testItem(userID, title string) *types.TrackableItem {
	return &types.TrackableItem{
		ID:           uuid.New().String(),
		UserID:       userID,
		Kind:         types.KindHabit,
		Title:        title,
		TrackingMode: types.TrackingBoolean,
		TargetReps:   3,
		Schedule:     types.Schedule{Days: []string{"monday", "wednesday", "friday"}},
		Status:       types.ItemActive,
	}
}

func TestStore_ItemRoundTrip(t *testing.T) {
	s := newTestStore(t)

	item := testItem("u1", "Méditer 10 minutes")
	require.NoError(t, s.CreateItem(item))

	got, err := s.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, got.Title)
	assert.Equal(t, 3, got.TargetReps)
	assert.Equal(t, []string{"monday", "wednesday", "friday"}, got.Schedule.Days)
	assert.Equal(t, types.ItemActive, got.Status)
}

func TestStore_GetItemByTitleCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateItem(testItem("u1", "Courir")))

	got, err := s.GetItemByTitle("u1", "courir")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Courir", got.Title)

	got, err = s.GetItemByTitle("u1", "COURIR")
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = s.GetItemByTitle("u2", "courir")
	require.NoError(t, err)
	assert.Nil(t, got, "other user must not see the item")

	got, err = s.GetItemByTitle("u1", "nager")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_UpdateItem(t *testing.T) {
	s := newTestStore(t)
	item := testItem("u1", "Lire")
	require.NoError(t, s.CreateItem(item))

	item.TargetReps = 5
	item.Schedule.Days = append(item.Schedule.Days, "saturday", "sunday")
	require.NoError(t, s.UpdateItem(item))

	got, err := s.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TargetReps)
	assert.Len(t, got.Schedule.Days, 5)
}

func TestStore_UpdateItemNotFound(t *testing.T) {
	s := newTestStore(t)
	item := testItem("u1", "Fantôme")
	err := s.UpdateItem(item)
	assert.Error(t, err)
}

func TestStore_ListItemsByStatus(t *testing.T) {
	s := newTestStore(t)
	a := testItem("u1", "Actif")
	b := testItem("u1", "Archivé")
	b.Status = types.ItemArchived
	require.NoError(t, s.CreateItem(a))
	require.NoError(t, s.CreateItem(b))

	active, err := s.ListItemsByStatus("u1", types.ItemActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Actif", active[0].Title)
}

func TestStore_LogsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	item := testItem("u1", "Courir")
	require.NoError(t, s.CreateItem(item))

	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.InsertLog(&types.LogEntry{
			ItemID:      item.ID,
			Status:      types.LogCompleted,
			PerformedAt: base.AddDate(0, 0, i),
		}))
	}

	logs, err := s.ListLogs(item.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].PerformedAt.After(logs[1].PerformedAt))
	assert.True(t, logs[1].PerformedAt.After(logs[2].PerformedAt))

	limited, err := s.ListLogs(item.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_BumpCounter(t *testing.T) {
	s := newTestStore(t)
	item := testItem("u1", "Courir")
	require.NoError(t, s.CreateItem(item))

	now := time.Now()
	require.NoError(t, s.BumpCounter(item.ID, types.LogCompleted, now))
	require.NoError(t, s.BumpCounter(item.ID, types.LogPartial, now))
	require.NoError(t, s.BumpCounter(item.ID, types.LogMissed, now))

	got, err := s.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CompletedCount, "partial counts as completion")
	assert.Equal(t, 1, got.MissedCount)
	require.NotNil(t, got.LastPerformedAt)
}

func TestStore_PlanDocumentRoundTrip(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.LoadPlan("u1")
	require.NoError(t, err)
	require.Len(t, doc.Phases, 1, "missing plan yields one active phase")
	assert.Equal(t, types.PhaseActive, doc.Phases[0].Status)

	doc.Phases = append(doc.Phases, types.PlanPhase{Name: "Phase 2", Status: types.PhaseLocked})
	doc.Phases[0].Items = []types.PlanItem{{ID: "i1", Kind: types.KindHabit, Title: "Courir", Status: types.ItemActive, TargetReps: 3}}
	require.NoError(t, s.SavePlan("u1", doc))

	got, err := s.LoadPlan("u1")
	require.NoError(t, err)
	require.Len(t, got.Phases, 2)
	assert.Equal(t, "Courir", got.Phases[0].Items[0].Title)
	assert.Equal(t, types.PhaseLocked, got.Phases[1].Status)
}

func TestStore_SessionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	state, err := s.LoadSession("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", state.UserID)
	assert.Nil(t, state.Candidate)

	state.Candidate = &types.Candidate{
		ID:     uuid.New().String(),
		Kind:   types.CandidateAction,
		Status: types.CandAwaitingConfirm,
		Proposed: types.ItemDraft{
			Kind:       types.KindHabit,
			Title:      "Méditer",
			TargetReps: 3,
		},
	}
	require.NoError(t, s.SaveSession(state))

	got, err := s.LoadSession("u1")
	require.NoError(t, err)
	require.NotNil(t, got.Candidate)
	assert.Equal(t, types.CandAwaitingConfirm, got.Candidate.Status)
	assert.Equal(t, "Méditer", got.Candidate.Proposed.Title)
}

func TestStore_LedgerDedup(t *testing.T) {
	s := newTestStore(t)

	ev := &LedgerEvent{
		DedupKey:  "u1:tool_executed:track_progress:abc",
		UserID:    "u1",
		EventType: "tool_executed",
		Tool:      "track_progress",
		Outcome:   "success",
	}
	inserted, err := s.AppendLedger(ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := &LedgerEvent{
		DedupKey:  "u1:tool_executed:track_progress:abc",
		UserID:    "u1",
		EventType: "tool_executed",
	}
	inserted, err = s.AppendLedger(dup)
	require.NoError(t, err)
	assert.False(t, inserted, "same dedup key must be dropped")

	events, err := s.ListLedger("u1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
