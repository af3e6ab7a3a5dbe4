package plan

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

func newTestAdapter(t *testing.T) (*Adapter, *store.Store) {
	t.Helper()
	s, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewAdapter(s), s
}

func habitDraft(title string) types.ItemDraft {
	return types.ItemDraft{
		Kind:         types.KindHabit,
		Title:        title,
		TrackingMode: types.TrackingBoolean,
		TargetReps:   3,
		Schedule:     types.Schedule{Days: []string{"monday", "wednesday", "friday"}},
	}
}

func TestAdapter_CreateItemVerifiedOnBothSides(t *testing.T) {
	a, s := newTestAdapter(t)

	res := a.CreateItem("u1", habitDraft("Méditer"), types.ItemActive)
	require.Equal(t, types.OutcomeSuccess, res.Outcome, res.Message)
	require.NotEmpty(t, res.ItemID)

	row, err := s.GetItemByTitle("u1", "méditer")
	require.NoError(t, err)
	require.NotNil(t, row)

	doc, err := s.LoadPlan("u1")
	require.NoError(t, err)
	pi, ii := doc.FindItem(res.ItemID)
	require.GreaterOrEqual(t, pi, 0)
	assert.Equal(t, "Méditer", doc.Phases[pi].Items[ii].Title)
}

func TestAdapter_CreateItemDocumentWriteFailureIsUncertain(t *testing.T) {
	a, s := newTestAdapter(t)

	// Fail the document rewrite while leaving the row insert untouched.
	_, err := s.GetDB().Exec(`
		CREATE TRIGGER plan_write_fails BEFORE INSERT ON plan_documents
		BEGIN SELECT RAISE(ABORT, 'simulated write failure'); END`)
	require.NoError(t, err)

	res := a.CreateItem("u1", habitDraft("Méditer"), types.ItemActive)
	assert.Equal(t, types.OutcomeUncertain, res.Outcome, "one-sided write must never report success")
	assert.Equal(t, "verification_mismatch", res.Code)

	row, err := s.GetItemByTitle("u1", "Méditer")
	require.NoError(t, err)
	assert.NotNil(t, row, "the row side of the dual write went through")
}

func TestAdapter_CreateItemDuplicateTitle(t *testing.T) {
	a, s := newTestAdapter(t)

	res := a.CreateItem("u1", habitDraft("Courir"), types.ItemActive)
	require.Equal(t, types.OutcomeSuccess, res.Outcome)

	for _, title := range []string{"Courir", "courir", "  COURIR  "} {
		res = a.CreateItem("u1", habitDraft(title), types.ItemActive)
		assert.Equal(t, types.OutcomeBlocked, res.Outcome, title)
		assert.Equal(t, "duplicate", res.Code, title)
	}

	items, err := s.ListItems("u1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "no duplicate row may exist")
}

func TestAdapter_CreateItemEmptyTitle(t *testing.T) {
	a, _ := newTestAdapter(t)
	res := a.CreateItem("u1", habitDraft("   "), types.ItemActive)
	assert.Equal(t, types.OutcomeBlocked, res.Outcome)
	assert.Equal(t, "empty_title", res.Code)
}

func TestCheckFrequencyReduction(t *testing.T) {
	item := &types.TrackableItem{
		ID:         "i1",
		TargetReps: 5,
		Schedule:   types.Schedule{Days: []string{"monday", "tuesday", "thursday", "saturday"}},
	}

	t.Run("reduction below scheduled days is blocked", func(t *testing.T) {
		r := CheckFrequencyReduction(item, 3)
		require.NotNil(t, r)
		assert.Equal(t, types.OutcomeBlocked, r.Outcome)
		assert.Equal(t, "frequency_reduction", r.Code)
		assert.Len(t, r.Missing, 4)
		assert.Contains(t, r.Message, "Quel jour")
	})

	t.Run("reduction with room passes", func(t *testing.T) {
		assert.Nil(t, CheckFrequencyReduction(item, 4))
	})

	t.Run("increase passes", func(t *testing.T) {
		assert.Nil(t, CheckFrequencyReduction(item, 6))
	})
}

func TestAdapter_ApplyUpdate(t *testing.T) {
	a, s := newTestAdapter(t)

	res := a.CreateItem("u1", habitDraft("Lire"), types.ItemActive)
	require.Equal(t, types.OutcomeSuccess, res.Outcome)

	item, err := s.GetItem(res.ItemID)
	require.NoError(t, err)
	item.TargetReps = 5
	item.Schedule.Days = append(item.Schedule.Days, "saturday", "sunday")

	upd := a.ApplyUpdate("u1", item)
	require.Equal(t, types.OutcomeSuccess, upd.Outcome, upd.Message)

	got, err := s.GetItem(res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TargetReps)

	doc, err := s.LoadPlan("u1")
	require.NoError(t, err)
	pi, ii := doc.FindItem(res.ItemID)
	require.GreaterOrEqual(t, pi, 0)
	assert.Equal(t, 5, doc.Phases[pi].Items[ii].TargetReps)
}

func TestAdapter_ProjectionMatchesRows(t *testing.T) {
	a, s := newTestAdapter(t)

	res := a.CreateItem("u1", habitDraft("Nager"), types.ItemActive)
	require.Equal(t, types.OutcomeSuccess, res.Outcome)

	item, err := s.GetItem(res.ItemID)
	require.NoError(t, err)
	item.Title = "Nager en piscine"
	item.TargetReps = 2
	require.Equal(t, types.OutcomeSuccess, a.ApplyUpdate("u1", item).Outcome)
	require.Equal(t, types.OutcomeSuccess, a.SetStatus("u1", res.ItemID, types.ItemArchived).Outcome)

	// After any write sequence the document projection must agree with the
	// row, field for field.
	row, err := s.GetItem(res.ItemID)
	require.NoError(t, err)
	doc, err := s.LoadPlan("u1")
	require.NoError(t, err)
	pi, ii := doc.FindItem(res.ItemID)
	require.GreaterOrEqual(t, pi, 0)

	want := types.PlanItem{
		ID:         row.ID,
		Kind:       row.Kind,
		Title:      row.Title,
		Status:     row.Status,
		TargetReps: row.TargetReps,
	}
	if diff := cmp.Diff(want, doc.Phases[pi].Items[ii]); diff != "" {
		t.Errorf("projection drifted from rows (-row +doc):\n%s", diff)
	}
}

func TestAdapter_MissingPrerequisites(t *testing.T) {
	a, s := newTestAdapter(t)

	res := a.CreateItem("u1", habitDraft("Fondation"), types.ItemPending)
	require.Equal(t, types.OutcomeSuccess, res.Outcome)

	later := &types.TrackableItem{
		ID: "p1-item", UserID: "u1", Kind: types.KindHabit, Title: "Avancée",
		TrackingMode: types.TrackingBoolean, Status: types.ItemPending, Phase: 1,
	}
	require.NoError(t, s.CreateItem(later))

	missing, err := a.MissingPrerequisites("u1", later)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fondation"}, missing)

	st := a.SetStatus("u1", res.ItemID, types.ItemActive)
	require.Equal(t, types.OutcomeSuccess, st.Outcome)

	missing, err = a.MissingPrerequisites("u1", later)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestAdapter_SetStatusUpdatesProjection(t *testing.T) {
	a, s := newTestAdapter(t)

	res := a.CreateItem("u1", habitDraft("Courir"), types.ItemPending)
	require.Equal(t, types.OutcomeSuccess, res.Outcome)

	st := a.SetStatus("u1", res.ItemID, types.ItemArchived)
	require.Equal(t, types.OutcomeSuccess, st.Outcome)

	row, err := s.GetItem(res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, types.ItemArchived, row.Status)

	doc, err := s.LoadPlan("u1")
	require.NoError(t, err)
	pi, ii := doc.FindItem(res.ItemID)
	require.GreaterOrEqual(t, pi, 0)
	assert.Equal(t, types.ItemArchived, doc.Phases[pi].Items[ii].Status)
}

func TestAdapter_TrackProgress(t *testing.T) {
	a, s := newTestAdapter(t)
	ctx := context.Background()

	res := a.CreateItem("u1", habitDraft("Courir"), types.ItemActive)
	require.Equal(t, types.OutcomeSuccess, res.Outcome)

	tr := a.TrackProgress(ctx, "u1", "courir", &types.LogEntry{Status: types.LogCompleted})
	require.Equal(t, types.OutcomeSuccess, tr.Outcome, tr.Message)

	logs, err := s.ListLogs(res.ItemID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, types.LogCompleted, logs[0].Status)

	item, err := s.GetItem(res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, 1, item.CompletedCount)
	require.NotNil(t, item.LastPerformedAt)
}

func TestAdapter_TrackProgressUnknownItem(t *testing.T) {
	a, _ := newTestAdapter(t)
	tr := a.TrackProgress(context.Background(), "u1", "inconnu", &types.LogEntry{Status: types.LogCompleted})
	assert.Equal(t, types.OutcomeBlocked, tr.Outcome)
	assert.Equal(t, "unknown_item", tr.Code)
}
