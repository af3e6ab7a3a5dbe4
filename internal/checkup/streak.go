package checkup

import (
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// dayKey buckets an instant into its local calendar day.
func dayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// dayStatus reduces a day's entries to one status. The latest entry of the
// day wins; a partial counts as completed.
func dayStatus(entries []*types.LogEntry) types.LogStatus {
	latest := entries[0]
	for _, e := range entries[1:] {
		if e.PerformedAt.After(latest.PerformedAt) {
			latest = e
		}
	}
	if latest.Status == types.LogPartial {
		return types.LogCompleted
	}
	return latest.Status
}

// Streak counts consecutive calendar days sharing the given status,
// starting from the most recent logged day and walking backwards. Only
// days with an actual entry count; a calendar gap breaks the chain rather
// than being assumed as any particular status.
func Streak(entries []*types.LogEntry, status types.LogStatus) int {
	if len(entries) == 0 {
		return 0
	}

	byDay := make(map[string][]*types.LogEntry)
	var latest time.Time
	for _, e := range entries {
		k := dayKey(e.PerformedAt)
		byDay[k] = append(byDay[k], e)
		if e.PerformedAt.After(latest) {
			latest = e.PerformedAt
		}
	}

	target := status
	if target == types.LogPartial {
		target = types.LogCompleted
	}

	count := 0
	day := latest
	for {
		dayEntries, logged := byDay[dayKey(day)]
		if !logged {
			break
		}
		if dayStatus(dayEntries) != target {
			break
		}
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}
