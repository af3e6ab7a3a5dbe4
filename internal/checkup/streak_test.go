package checkup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

func entry(status types.LogStatus, t time.Time) *types.LogEntry {
	return &types.LogEntry{ItemID: "i1", Status: status, PerformedAt: t}
}

func TestStreak(t *testing.T) {
	base := time.Date(2026, 8, 27, 9, 0, 0, 0, time.Local)
	day := func(offset int) time.Time { return base.AddDate(0, 0, offset) }

	t.Run("consecutive missed days", func(t *testing.T) {
		logs := []*types.LogEntry{
			entry(types.LogMissed, day(0)),
			entry(types.LogMissed, day(-1)),
			entry(types.LogMissed, day(-2)),
		}
		assert.Equal(t, 3, Streak(logs, types.LogMissed))
		assert.Equal(t, 0, Streak(logs, types.LogCompleted))
	})

	t.Run("gap day breaks the chain", func(t *testing.T) {
		logs := []*types.LogEntry{
			entry(types.LogMissed, day(0)),
			entry(types.LogMissed, day(-1)),
			// day(-2) has no entry at all
			entry(types.LogMissed, day(-3)),
			entry(types.LogMissed, day(-4)),
		}
		assert.Equal(t, 2, Streak(logs, types.LogMissed),
			"an unlogged day terminates the streak, it is not assumed missed")
	})

	t.Run("opposite status breaks the chain", func(t *testing.T) {
		logs := []*types.LogEntry{
			entry(types.LogCompleted, day(0)),
			entry(types.LogCompleted, day(-1)),
			entry(types.LogMissed, day(-2)),
			entry(types.LogCompleted, day(-3)),
		}
		assert.Equal(t, 2, Streak(logs, types.LogCompleted))
	})

	t.Run("partial counts as completed", func(t *testing.T) {
		logs := []*types.LogEntry{
			entry(types.LogPartial, day(0)),
			entry(types.LogCompleted, day(-1)),
		}
		assert.Equal(t, 2, Streak(logs, types.LogCompleted))
	})

	t.Run("latest entry of a day wins", func(t *testing.T) {
		logs := []*types.LogEntry{
			entry(types.LogMissed, day(0).Add(-2*time.Hour)),
			entry(types.LogCompleted, day(0)), // corrected later the same day
			entry(types.LogCompleted, day(-1)),
		}
		assert.Equal(t, 2, Streak(logs, types.LogCompleted))
	})

	t.Run("no entries", func(t *testing.T) {
		assert.Equal(t, 0, Streak(nil, types.LogMissed))
	})

	t.Run("streak counts only from the most recent logged day", func(t *testing.T) {
		logs := []*types.LogEntry{
			entry(types.LogMissed, day(-3)),
			entry(types.LogMissed, day(-4)),
		}
		assert.Equal(t, 2, Streak(logs, types.LogMissed))
	})
}
