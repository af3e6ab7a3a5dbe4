// Package checkup implements the daily interview engine. It finds stale
// trackable items, walks them one at a time interpreting free-text replies
// as log events, computes streaks, and branches a stuck item into the
// breakdown flow. The session queue can grow while it runs: the closing
// step re-scans and only reports completion once nothing is pending.
package checkup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/candidate"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/perception"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/plan"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// DefaultStaleness is the window after which an item is due for re-check.
const DefaultStaleness = 18 * time.Hour

// Reply is the scanner's answer for one checkup turn. Outcome carries the
// dual-write result when the turn recorded a log entry, empty otherwise.
type Reply struct {
	Text             string
	Outcome          types.Outcome
	Done             bool // checkup session destroyed
	StartedBreakdown bool // a breakdown candidate now suspends the walk
}

// Scanner drives checkup sessions. Stateless; the session lives in the
// per-user session state.
type Scanner struct {
	adapter *plan.Adapter
	store   *store.Store
	machine *candidate.Machine

	staleness          time.Duration
	missedThreshold    int
	completedThreshold int
}

// NewScanner wires a scanner with the default thresholds (18h staleness,
// breakdown at 5 missed, acknowledgment at 3 completed).
func NewScanner(adapter *plan.Adapter, s *store.Store, machine *candidate.Machine) *Scanner {
	return &Scanner{
		adapter:            adapter,
		store:              s,
		machine:            machine,
		staleness:          DefaultStaleness,
		missedThreshold:    5,
		completedThreshold: 3,
	}
}

// WithThresholds overrides the defaults, used by config wiring and tests.
func (sc *Scanner) WithThresholds(staleness time.Duration, missed, completed int) *Scanner {
	sc.staleness = staleness
	sc.missedThreshold = missed
	sc.completedThreshold = completed
	return sc
}

// ============================================================================
// SCANNING
// ============================================================================

func (sc *Scanner) isStale(item *types.TrackableItem, now time.Time) bool {
	if item.LastPerformedAt == nil {
		return true
	}
	return now.Sub(*item.LastPerformedAt) > sc.staleness
}

func kindOrder(k types.ItemKind) int {
	switch k {
	case types.KindVitalSign:
		return 0
	case types.KindFramework:
		return 2
	default: // habits and missions
		return 1
	}
}

// PendingItems lists active items due for a check, vital signs first, then
// actions, then frameworks.
func (sc *Scanner) PendingItems(userID string, now time.Time) ([]*types.TrackableItem, error) {
	items, err := sc.store.ListItemsByStatus(userID, types.ItemActive)
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}
	var pending []*types.TrackableItem
	for _, it := range items {
		if sc.isStale(it, now) {
			pending = append(pending, it)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return kindOrder(pending[i].Kind) < kindOrder(pending[j].Kind)
	})
	return pending, nil
}

// ============================================================================
// SESSION LIFECYCLE
// ============================================================================

// Begin opens a checkup session and returns the first prompt. When nothing
// is pending no session is created.
func (sc *Scanner) Begin(userID string, state *types.SessionState, now time.Time) (Reply, error) {
	pending, err := sc.PendingItems(userID, now)
	if err != nil {
		return Reply{}, err
	}
	if len(pending) == 0 {
		return Reply{Text: "Tout est à jour, rien à vérifier aujourd'hui. Profite !", Done: true}, nil
	}

	ids := make([]string, len(pending))
	for i, it := range pending {
		ids[i] = it.ID
	}
	state.Checkup = &types.CheckupSession{
		Status:    types.CheckupChecking,
		Pending:   ids,
		StartedAt: now,
	}
	logging.Checkup("Begin: %d pending items for %s", len(ids), userID)

	text := ""
	if opening := sc.openingMessage(userID, state, now); opening != "" {
		text = opening + "\n\n"
	}
	text += sc.prompt(pending[0])
	return Reply{Text: text}, nil
}

func (sc *Scanner) prompt(item *types.TrackableItem) string {
	switch item.Kind {
	case types.KindVitalSign:
		return fmt.Sprintf("Côté « %s », tu en es où ?", item.Title)
	case types.KindFramework:
		return fmt.Sprintf("Est-ce que tu as pris un moment pour « %s » ?", item.Title)
	default:
		return fmt.Sprintf("Et pour « %s », ça a donné quoi ?", item.Title)
	}
}

// Resume re-prompts for the current pending item. Used when a suspending
// sub-flow (breakdown) has just resolved and the walk picks back up.
func (sc *Scanner) Resume(userID string, state *types.SessionState, now time.Time) Reply {
	if state.Checkup == nil {
		return Reply{Done: true}
	}
	return sc.nextPrompt(userID, state, now, "")
}

// HandleReply advances the interview with one user message.
func (sc *Scanner) HandleReply(ctx context.Context, userID string, state *types.SessionState, message string, now time.Time) Reply {
	sess := state.Checkup
	if sess == nil {
		return Reply{Text: "On n'a pas de point en cours. Tu veux qu'on fasse le tour de ton plan ?", Done: true}
	}

	if perception.IsCancellation(message) {
		state.Checkup = nil
		return Reply{Text: "D'accord, on s'arrête là pour aujourd'hui. On reprendra demain.", Done: true}
	}

	if sess.AwaitingReason != "" {
		return sc.handleReason(ctx, userID, state, message, now)
	}

	itemID := sess.CurrentItem()
	if itemID == "" {
		return sc.closeOrExtend(userID, state, now, "")
	}
	item, err := sc.store.GetItem(itemID)
	if err != nil {
		logging.Checkup("HandleReply: item %s vanished: %v", itemID, err)
		sess.CurrentIndex++
		return sc.nextPrompt(userID, state, now, "")
	}

	status, ok := interpretLog(message)
	if !ok {
		if sess.TempMemory == nil {
			sess.TempMemory = make(map[string]string)
		}
		// One clarification per item, then skip rather than loop.
		if sess.TempMemory["asked:"+itemID] != "" {
			sess.CurrentIndex++
			return sc.nextPrompt(userID, state, now,
				fmt.Sprintf("Pas de souci, on laisse « %s » de côté pour l'instant.", item.Title))
		}
		sess.TempMemory["asked:"+itemID] = "1"
		return Reply{Text: fmt.Sprintf("Juste pour que je note bien : « %s », c'est fait ou pas fait ?", item.Title)}
	}

	if status == types.LogMissed {
		// Hold the log until the reason is known; entries are immutable.
		sess.AwaitingReason = itemID
		return Reply{Text: "D'accord, ça arrive. Qu'est-ce qui t'en a empêché ?"}
	}

	return sc.recordAndAdvance(ctx, userID, state, item, status, "", now)
}

// handleReason buckets the miss explanation, writes the held log, and only
// then checks the missed streak.
func (sc *Scanner) handleReason(ctx context.Context, userID string, state *types.SessionState, message string, now time.Time) Reply {
	sess := state.Checkup
	itemID := sess.AwaitingReason
	sess.AwaitingReason = ""

	item, err := sc.store.GetItem(itemID)
	if err != nil {
		sess.CurrentIndex++
		return sc.nextPrompt(userID, state, now, "")
	}
	return sc.recordAndAdvance(ctx, userID, state, item, types.LogMissed, bucketReason(message), now)
}

func (sc *Scanner) recordAndAdvance(ctx context.Context, userID string, state *types.SessionState, item *types.TrackableItem, status types.LogStatus, reason types.MissReason, now time.Time) Reply {
	sess := state.Checkup
	entry := &types.LogEntry{Status: status, Reason: reason, Note: "", PerformedAt: now}
	res := sc.adapter.TrackProgress(ctx, userID, item.ID, entry)
	if res.Outcome == types.OutcomeFailed {
		sess.CurrentIndex++
		r := sc.nextPrompt(userID, state, now, res.Message)
		r.Outcome = res.Outcome
		return r
	}

	logs, err := sc.store.ListLogs(item.ID, 60)
	ack := ""
	if err == nil {
		switch status {
		case types.LogMissed:
			if streak := Streak(logs, types.LogMissed); streak >= sc.missedThreshold {
				r := sc.startBreakdown(userID, state, item, streak)
				r.Outcome = res.Outcome
				return r
			}
			ack = fmt.Sprintf("C'est noté pour « %s ». Demain est un autre jour.", item.Title)
		default:
			if streak := Streak(logs, types.LogCompleted); streak >= sc.completedThreshold {
				ack = fmt.Sprintf("« %s » : %d jours d'affilée. Ça s'installe, bravo !", item.Title, streak)
			} else {
				ack = fmt.Sprintf("Super pour « %s » !", item.Title)
			}
		}
	}

	sess.CurrentIndex++
	r := sc.nextPrompt(userID, state, now, ack)
	r.Outcome = res.Outcome
	return r
}

// startBreakdown suspends the walk behind a breakdown candidate. The
// orchestrator resumes the candidate first on the next turns; the checkup
// session stays in the state and picks up where it left off afterwards.
func (sc *Scanner) startBreakdown(userID string, state *types.SessionState, item *types.TrackableItem, streak int) Reply {
	state.Checkup.CurrentIndex++
	cand, reply := sc.machine.StartBreakdown(userID, item)
	state.Candidate = cand
	logging.Checkup("startBreakdown: %s missed %d days running", item.ID, streak)

	text := fmt.Sprintf("Ça fait %d jours que « %s » ne passe pas. Plutôt que d'insister, on va la rendre plus petite.\n\n%s",
		streak, item.Title, reply.Text)
	return Reply{Text: text, StartedBreakdown: true}
}

func (sc *Scanner) nextPrompt(userID string, state *types.SessionState, now time.Time, prefix string) Reply {
	sess := state.Checkup
	for sess.CurrentIndex < len(sess.Pending) {
		item, err := sc.store.GetItem(sess.Pending[sess.CurrentIndex])
		if err != nil {
			sess.CurrentIndex++
			continue
		}
		text := sc.prompt(item)
		if prefix != "" {
			text = prefix + "\n\n" + text
		}
		return Reply{Text: text}
	}
	return sc.closeOrExtend(userID, state, now, prefix)
}

// closeOrExtend re-scans when the queue runs out. Newly-stale items extend
// the walk; the session only dies once a re-scan finds nothing.
func (sc *Scanner) closeOrExtend(userID string, state *types.SessionState, now time.Time, prefix string) Reply {
	sess := state.Checkup
	sess.Status = types.CheckupClosing

	pending, err := sc.PendingItems(userID, now)
	if err == nil {
		seen := make(map[string]bool, len(sess.Pending))
		for _, id := range sess.Pending {
			seen[id] = true
		}
		var fresh []*types.TrackableItem
		for _, it := range pending {
			if !seen[it.ID] {
				fresh = append(fresh, it)
			}
		}
		if len(fresh) > 0 {
			logging.Checkup("closeOrExtend: %d newly stale items, extending", len(fresh))
			for _, it := range fresh {
				sess.Pending = append(sess.Pending, it.ID)
			}
			sess.Status = types.CheckupChecking
			return sc.nextPrompt(userID, state, now, prefix)
		}
	}

	state.Checkup = nil
	text := "Et voilà, on a fait le tour. Bonne journée !"
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return Reply{Text: text, Done: true}
}

// ============================================================================
// FREE-TEXT INTERPRETATION
// ============================================================================

// interpretLog maps a reply to a log status. Ambiguity returns ok=false so
// the caller asks instead of assuming.
func interpretLog(message string) (types.LogStatus, bool) {
	n := perception.Normalize(message)

	for _, p := range []string{"en partie", "a moitie", "partiellement", "un peu", "pas completement", "presque"} {
		if perception.ContainsPhrase(n, p) {
			return types.LogPartial, true
		}
	}
	// Negations before completions: "pas fait" must not match on "fait".
	for _, p := range []string{"non", "pas fait", "pas eu le temps", "rate", "loupe", "zappe", "oublie", "nope", "no"} {
		if perception.ContainsPhrase(n, p) {
			return types.LogMissed, true
		}
	}
	for _, p := range []string{"fait", "oui", "yes", "ouais", "c est bon", "c'est bon", "done", "check", "nickel"} {
		if perception.ContainsPhrase(n, p) {
			return types.LogCompleted, true
		}
	}
	return "", false
}

// bucketReason maps a free-text explanation to a miss-reason bucket.
func bucketReason(message string) types.MissReason {
	n := perception.Normalize(message)
	switch {
	case anyPhrase(n, "fatigue", "fatiguee", "epuise", "epuisee", "creve", "crevee", "dormi", "tired"):
		return types.ReasonFatigue
	case anyPhrase(n, "temps", "deborde", "debordee", "boulot", "travail", "reunion", "busy", "time"):
		return types.ReasonTime
	case anyPhrase(n, "oublie", "oubliee", "zappe", "pense", "tete", "forgot"):
		return types.ReasonForgetfulness
	default:
		return types.ReasonOther
	}
}

func anyPhrase(n string, phrases ...string) bool {
	for _, p := range phrases {
		if perception.ContainsPhrase(n, p) {
			return true
		}
	}
	return false
}
