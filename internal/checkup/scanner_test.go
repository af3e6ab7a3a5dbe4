package checkup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/candidate"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/plan"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

var now = time.Date(2026, 8, 27, 9, 0, 0, 0, time.Local)

func newTestScanner(t *testing.T) (*Scanner, *store.Store) {
	t.Helper()
	s, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	a := plan.NewAdapter(s)
	m := candidate.NewMachine(a, nil, nil)
	return NewScanner(a, s, m), s
}

func seedItem(t *testing.T, s *store.Store, title string, kind types.ItemKind, lastPerformed *time.Time) string {
	t.Helper()
	item := &types.TrackableItem{
		ID:              uuid.New().String(),
		UserID:          "u1",
		Kind:            kind,
		Title:           title,
		TrackingMode:    types.TrackingBoolean,
		TargetReps:      3,
		Status:          types.ItemActive,
		LastPerformedAt: lastPerformed,
	}
	require.NoError(t, s.CreateItem(item))
	return item.ID
}

func seedLogs(t *testing.T, s *store.Store, itemID string, status types.LogStatus, dayOffsets ...int) {
	t.Helper()
	for _, off := range dayOffsets {
		require.NoError(t, s.InsertLog(&types.LogEntry{
			ItemID:      itemID,
			Status:      status,
			PerformedAt: now.AddDate(0, 0, off),
		}))
	}
}

// ============================================================================
// SCANNING
// ============================================================================

func TestPendingItems_StalenessAndOrder(t *testing.T) {
	sc, s := newTestScanner(t)

	recent := now.Add(-2 * time.Hour)
	old := now.Add(-30 * time.Hour)

	seedItem(t, s, "Bilan hebdo", types.KindFramework, nil)
	seedItem(t, s, "Courir", types.KindHabit, &old)
	seedItem(t, s, "Sommeil", types.KindVitalSign, nil)
	seedItem(t, s, "Lire", types.KindHabit, &recent) // fresh, not pending

	pending, err := sc.PendingItems("u1", now)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "Sommeil", pending[0].Title, "vital signs first")
	assert.Equal(t, "Courir", pending[1].Title, "then actions")
	assert.Equal(t, "Bilan hebdo", pending[2].Title, "then frameworks")
}

func TestBegin_NothingPending(t *testing.T) {
	sc, s := newTestScanner(t)
	recent := now.Add(-1 * time.Hour)
	seedItem(t, s, "Courir", types.KindHabit, &recent)

	state := &types.SessionState{UserID: "u1"}
	reply, err := sc.Begin("u1", state, now)
	require.NoError(t, err)
	assert.True(t, reply.Done)
	assert.Nil(t, state.Checkup)
}

// ============================================================================
// WALKING
// ============================================================================

func TestCheckup_CompletedWalkToClosing(t *testing.T) {
	sc, s := newTestScanner(t)
	id := seedItem(t, s, "Courir", types.KindHabit, nil)
	ctx := context.Background()

	state := &types.SessionState{UserID: "u1"}
	reply, err := sc.Begin("u1", state, now)
	require.NoError(t, err)
	require.NotNil(t, state.Checkup)
	assert.Contains(t, reply.Text, "Courir")

	reply = sc.HandleReply(ctx, "u1", state, "oui c'est fait", now)
	assert.True(t, reply.Done, reply.Text)
	assert.Equal(t, types.OutcomeSuccess, reply.Outcome, "the recorded log's dual-write outcome rides on the reply")
	assert.Nil(t, state.Checkup, "session destroyed once the re-scan is empty")

	logs, err := s.ListLogs(id, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, types.LogCompleted, logs[0].Status)
}

func TestCheckup_MissedAsksReasonThenLogs(t *testing.T) {
	sc, s := newTestScanner(t)
	id := seedItem(t, s, "Courir", types.KindHabit, nil)
	ctx := context.Background()

	state := &types.SessionState{UserID: "u1"}
	_, err := sc.Begin("u1", state, now)
	require.NoError(t, err)

	reply := sc.HandleReply(ctx, "u1", state, "non pas fait", now)
	assert.Contains(t, reply.Text, "empêché", "reason is asked before logging")
	assert.Empty(t, reply.Outcome, "nothing is written while the reason is pending")
	assert.Equal(t, id, state.Checkup.AwaitingReason)

	logs, err := s.ListLogs(id, 0)
	require.NoError(t, err)
	assert.Empty(t, logs, "the log is held until the reason is known")

	reply = sc.HandleReply(ctx, "u1", state, "j'étais trop fatigué", now)
	assert.True(t, reply.Done)
	assert.Equal(t, types.OutcomeSuccess, reply.Outcome)

	logs, err = s.ListLogs(id, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, types.LogMissed, logs[0].Status)
	assert.Equal(t, types.ReasonFatigue, logs[0].Reason)
}

func TestCheckup_AmbiguousReplyAsksOnceThenSkips(t *testing.T) {
	sc, s := newTestScanner(t)
	seedItem(t, s, "Courir", types.KindHabit, nil)
	ctx := context.Background()

	state := &types.SessionState{UserID: "u1"}
	_, err := sc.Begin("u1", state, now)
	require.NoError(t, err)

	reply := sc.HandleReply(ctx, "u1", state, "mouais enfin bref", now)
	assert.Contains(t, reply.Text, "fait ou pas fait")
	require.NotNil(t, state.Checkup)

	reply = sc.HandleReply(ctx, "u1", state, "on verra bien hein", now)
	assert.True(t, reply.Done, "second ambiguity skips the item and closes")
}

func TestCheckup_CancellationStopsSession(t *testing.T) {
	sc, s := newTestScanner(t)
	seedItem(t, s, "Courir", types.KindHabit, nil)

	state := &types.SessionState{UserID: "u1"}
	_, err := sc.Begin("u1", state, now)
	require.NoError(t, err)

	reply := sc.HandleReply(context.Background(), "u1", state, "stop on arrête", now)
	assert.True(t, reply.Done)
	assert.Nil(t, state.Checkup)
}

// ============================================================================
// STREAK BRANCHES
// ============================================================================

func TestCheckup_MissedStreakFiveStartsBreakdown(t *testing.T) {
	sc, s := newTestScanner(t)
	id := seedItem(t, s, "Courir", types.KindHabit, nil)
	seedLogs(t, s, id, types.LogMissed, -1, -2, -3, -4)
	ctx := context.Background()

	state := &types.SessionState{UserID: "u1"}
	_, err := sc.Begin("u1", state, now)
	require.NoError(t, err)

	sc.HandleReply(ctx, "u1", state, "non", now)
	reply := sc.HandleReply(ctx, "u1", state, "pas eu le temps", now)

	assert.True(t, reply.StartedBreakdown)
	assert.Contains(t, reply.Text, "5 jours")
	require.NotNil(t, state.Candidate, "a breakdown candidate suspends the walk")
	assert.Equal(t, types.CandidateBreakdown, state.Candidate.Kind)
	assert.Equal(t, types.CandAwaitingBlocker, state.Candidate.Status)
	require.NotNil(t, state.Checkup, "the checkup session survives the suspension")
}

func TestCheckup_MissedStreakFourStaysInWalk(t *testing.T) {
	sc, s := newTestScanner(t)
	id := seedItem(t, s, "Courir", types.KindHabit, nil)
	seedLogs(t, s, id, types.LogMissed, -1, -2, -3)
	ctx := context.Background()

	state := &types.SessionState{UserID: "u1"}
	_, err := sc.Begin("u1", state, now)
	require.NoError(t, err)

	sc.HandleReply(ctx, "u1", state, "non", now)
	reply := sc.HandleReply(ctx, "u1", state, "pas eu le temps", now)

	assert.False(t, reply.StartedBreakdown)
	assert.Nil(t, state.Candidate)
}

func TestCheckup_CompletedStreakThreeAcknowledged(t *testing.T) {
	sc, s := newTestScanner(t)
	id := seedItem(t, s, "Courir", types.KindHabit, nil)
	seedLogs(t, s, id, types.LogCompleted, -1, -2)
	ctx := context.Background()

	state := &types.SessionState{UserID: "u1"}
	_, err := sc.Begin("u1", state, now)
	require.NoError(t, err)

	reply := sc.HandleReply(ctx, "u1", state, "fait !", now)
	assert.Contains(t, reply.Text, "3 jours d'affilée")
}

func TestCheckup_CompletedStreakTwoNoAcknowledgment(t *testing.T) {
	sc, s := newTestScanner(t)
	id := seedItem(t, s, "Courir", types.KindHabit, nil)
	seedLogs(t, s, id, types.LogCompleted, -1)
	ctx := context.Background()

	state := &types.SessionState{UserID: "u1"}
	_, err := sc.Begin("u1", state, now)
	require.NoError(t, err)

	reply := sc.HandleReply(ctx, "u1", state, "fait !", now)
	assert.NotContains(t, reply.Text, "d'affilée")
	assert.Contains(t, reply.Text, "Super")
}

// ============================================================================
// CLOSING RE-SCAN
// ============================================================================

func TestCheckup_ClosingRescanExtendsQueue(t *testing.T) {
	sc, s := newTestScanner(t)
	seedItem(t, s, "Courir", types.KindHabit, nil)
	ctx := context.Background()

	state := &types.SessionState{UserID: "u1"}
	_, err := sc.Begin("u1", state, now)
	require.NoError(t, err)

	// A new stale item appears mid-session.
	seedItem(t, s, "Méditer", types.KindHabit, nil)

	reply := sc.HandleReply(ctx, "u1", state, "oui fait", now)
	assert.False(t, reply.Done, "the re-scan must extend the walk")
	assert.Contains(t, reply.Text, "Méditer")
	require.NotNil(t, state.Checkup)
	assert.Len(t, state.Checkup.Pending, 2)

	reply = sc.HandleReply(ctx, "u1", state, "fait aussi", now)
	assert.True(t, reply.Done)
	assert.Nil(t, state.Checkup)
}

// ============================================================================
// OPENING MESSAGE
// ============================================================================

func TestOpeningMessage_FromPriorDayOutcomes(t *testing.T) {
	sc, s := newTestScanner(t)
	id := seedItem(t, s, "Courir", types.KindHabit, nil)

	require.NoError(t, s.InsertLog(&types.LogEntry{
		ItemID: id, Status: types.LogCompleted, PerformedAt: now.AddDate(0, 0, -1),
	}))
	require.NoError(t, s.InsertLog(&types.LogEntry{
		ItemID: id, Status: types.LogMissed, Reason: types.ReasonFatigue,
		PerformedAt: now.AddDate(0, 0, -1).Add(2 * time.Hour),
	}))

	state := &types.SessionState{UserID: "u1"}
	msg := sc.openingMessage("u1", state, now)
	assert.Contains(t, msg, "1 action faite")
	assert.Contains(t, msg, "1 manquée")
	assert.Contains(t, msg, "fatigue")
	assert.Equal(t, dayKey(now), state.LastOpeningDate)

	assert.Empty(t, sc.openingMessage("u1", state, now), "emitted once per day")
}

func TestTopReason(t *testing.T) {
	assert.Equal(t, types.ReasonTime,
		topReason(map[types.MissReason]int{types.ReasonTime: 3, types.ReasonFatigue: 1}))
	assert.Empty(t,
		topReason(map[types.MissReason]int{types.ReasonTime: 2, types.ReasonFatigue: 2}),
		"a tie has nothing dominant")
	assert.Empty(t, topReason(nil))
}
