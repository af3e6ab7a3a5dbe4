package checkup

import (
	"fmt"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// openingMessage personalizes the first checkup prompt of the day from the
// prior day's logged outcomes. Emitted at most once per calendar day,
// tracked through SessionState.LastOpeningDate.
func (sc *Scanner) openingMessage(userID string, state *types.SessionState, now time.Time) string {
	today := dayKey(now)
	if state.LastOpeningDate == today {
		return ""
	}
	state.LastOpeningDate = today

	yesterdayKey := dayKey(now.AddDate(0, 0, -1))
	start := now.AddDate(0, 0, -2)
	logs, err := sc.store.ListLogsSince(userID, start)
	if err != nil {
		return ""
	}

	var completed, missed int
	reasons := make(map[types.MissReason]int)
	for _, l := range logs {
		if dayKey(l.PerformedAt) != yesterdayKey {
			continue
		}
		switch l.Status {
		case types.LogCompleted, types.LogPartial:
			completed++
		case types.LogMissed:
			missed++
			if l.Reason != "" {
				reasons[l.Reason]++
			}
		}
	}

	switch {
	case completed == 0 && missed == 0:
		return ""
	case missed == 0:
		return fmt.Sprintf("Hier, %s. Belle lancée, on continue ?", countActions(completed))
	case completed == 0:
		msg := fmt.Sprintf("Hier a été une journée compliquée (%s).", countMissed(missed))
		if r := topReason(reasons); r != "" {
			msg += " " + reasonOpening(r)
		}
		return msg
	default:
		msg := fmt.Sprintf("Hier : %s, %s.", countActions(completed), countMissed(missed))
		if r := topReason(reasons); r != "" {
			msg += " " + reasonOpening(r)
		}
		return msg
	}
}

func countActions(n int) string {
	if n == 1 {
		return "1 action faite"
	}
	return fmt.Sprintf("%d actions faites", n)
}

func countMissed(n int) string {
	if n == 1 {
		return "1 manquée"
	}
	return fmt.Sprintf("%d manquées", n)
}

// topReason picks the most frequent miss-reason bucket, or "" on a tie
// with nothing dominant.
func topReason(reasons map[types.MissReason]int) types.MissReason {
	var best types.MissReason
	bestCount, tied := 0, false
	for r, c := range reasons {
		switch {
		case c > bestCount:
			best, bestCount, tied = r, c, false
		case c == bestCount:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return best
}

func reasonOpening(r types.MissReason) string {
	switch r {
	case types.ReasonFatigue:
		return "On dirait que la fatigue pèse en ce moment ; on en tient compte aujourd'hui."
	case types.ReasonTime:
		return "Le temps a manqué hier ; on va viser plus léger aujourd'hui."
	case types.ReasonForgetfulness:
		return "Les oublis arrivent ; on va peut-être caler des rappels plus simples."
	default:
		return "On regarde ensemble ce qui a coincé."
	}
}
