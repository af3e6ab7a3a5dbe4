// Package candidate implements the proposal-confirmation lifecycle. One
// generic machine drives three flows: creating a new trackable item,
// updating an existing one, and breaking a stuck item down into a
// micro-step. Nothing here writes to storage until a preview has been
// shown and the user has explicitly agreed; ambiguity gets exactly one
// clarification before the flow gives up gracefully.
package candidate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/ledger"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/plan"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// Abandonment reasons surfaced with distinct user copy.
const (
	ReasonDeclined            = "declined"
	ReasonTooAmbiguous        = "too_ambiguous"
	ReasonNoChanges           = "no_changes"
	ReasonNoProposalGenerated = "no_proposal_generated"
	ReasonCancelled           = "cancelled"
)

// PendingQuestion values the dispatcher can resolve deterministically.
const QuestionDropDay = "drop_day"

// ProposalGenerator produces the micro-step draft for a breakdown flow.
// The orchestrator backs it with the completion service; tests fake it.
type ProposalGenerator interface {
	GenerateMicroStep(ctx context.Context, targetTitle, blocker string) (types.ItemDraft, error)
}

// Reply is the machine's answer for one turn of a candidate flow.
type Reply struct {
	Text    string
	Outcome types.Outcome
	Done    bool   // candidate resolved; caller clears it from the session
	Reason  string // abandonment reason when the flow gave up
}

// Machine advances candidates. Stateless; the candidate itself lives in
// the session state.
type Machine struct {
	adapter   *plan.Adapter
	audit     *ledger.Writer
	generator ProposalGenerator
}

// NewMachine wires the machine. audit and generator may be nil (the
// breakdown flow then abandons with no_proposal_generated).
func NewMachine(adapter *plan.Adapter, audit *ledger.Writer, generator ProposalGenerator) *Machine {
	return &Machine{adapter: adapter, audit: audit, generator: generator}
}

func (m *Machine) emit(userID, eventType string, cand *types.Candidate, detail string) {
	if m.audit == nil {
		return
	}
	m.audit.Record(store.LedgerEvent{
		UserID:    userID,
		EventType: eventType,
		Detail:    detail,
		DedupKey:  ledger.Key(userID, eventType, cand.ID, detail),
	})
}

// ============================================================================
// FLOW ENTRY POINTS
// ============================================================================

// StartCreate opens a creation flow from whatever parameters are already
// known. The preview is only shown once every parameter is concrete; a
// missing value is asked for, never guessed.
func (m *Machine) StartCreate(userID string, draft types.ItemDraft) (*types.Candidate, Reply) {
	cand := &types.Candidate{
		ID:        uuid.New().String(),
		Kind:      types.CandidateAction,
		Proposed:  draft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.emit(userID, ledger.EventCandidateStarted, cand, string(cand.Kind))

	switch {
	case strings.TrimSpace(draft.Title) == "":
		cand.Status = types.CandExploring
		return cand, Reply{Text: "D'accord. Qu'est-ce que tu veux mettre en place, concrètement ?", Outcome: types.OutcomeNone}
	case needsFrequency(draft):
		cand.Status = types.CandAwaitingConfirm
		return cand, Reply{
			Text:    fmt.Sprintf("« %s », très bien. Combien de fois par semaine ?", draft.Title),
			Outcome: types.OutcomeNone,
		}
	default:
		return cand, m.showPreview(userID, cand)
	}
}

// StartUpdate opens an update flow against an existing item. The proposed
// draft carries only the fields that change; when nothing actually
// differs the flow abandons immediately with an honest message.
func (m *Machine) StartUpdate(userID string, item *types.TrackableItem, proposed types.ItemDraft) (*types.Candidate, Reply) {
	changes := diffChanges(item, proposed)
	cand := &types.Candidate{
		ID:          uuid.New().String(),
		Kind:        types.CandidateUpdate,
		TargetID:    item.ID,
		TargetTitle: item.Title,
		Proposed:    proposed,
		Changes:     changes,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.emit(userID, ledger.EventCandidateStarted, cand, string(cand.Kind))

	if len(changes) == 0 {
		cand.Status = types.CandAbandoned
		m.emit(userID, ledger.EventCandidateAbandoned, cand, ReasonNoChanges)
		return cand, Reply{
			Text:    fmt.Sprintf("En regardant de près, « %s » est déjà configurée comme ça. Je n'ai rien modifié.", item.Title),
			Outcome: types.OutcomeNone,
			Done:    true,
			Reason:  ReasonNoChanges,
		}
	}
	return cand, m.showPreview(userID, cand)
}

// StartBreakdown opens the stuck-item flow. With no target yet, it asks;
// with a target it asks for the blocker before generating a micro-step.
func (m *Machine) StartBreakdown(userID string, item *types.TrackableItem) (*types.Candidate, Reply) {
	cand := &types.Candidate{
		ID:        uuid.New().String(),
		Kind:      types.CandidateBreakdown,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if item == nil {
		cand.Status = types.CandAwaitingTarget
		m.emit(userID, ledger.EventCandidateStarted, cand, string(cand.Kind))
		return cand, Reply{Text: "Quelle action veux-tu simplifier ?", Outcome: types.OutcomeNone}
	}
	cand.TargetID = item.ID
	cand.TargetTitle = item.Title
	cand.Status = types.CandAwaitingBlocker
	m.emit(userID, ledger.EventCandidateStarted, cand, string(cand.Kind))
	return cand, Reply{
		Text:    fmt.Sprintf("On va rendre « %s » plus facile. Qu'est-ce qui coince en ce moment ?", item.Title),
		Outcome: types.OutcomeNone,
	}
}

func needsFrequency(d types.ItemDraft) bool {
	return d.Kind == types.KindHabit && d.TargetReps == 0
}

func (m *Machine) showPreview(userID string, cand *types.Candidate) Reply {
	cand.Status = types.CandPreviewing
	cand.UpdatedAt = time.Now()
	m.emit(userID, ledger.EventPreviewShown, cand, fmt.Sprintf("clar=%d", cand.ClarificationCount))
	logging.Candidate("showPreview: %s candidate %s", cand.Kind, cand.ID)
	return Reply{Text: RenderPreview(cand), Outcome: types.OutcomeNone}
}
