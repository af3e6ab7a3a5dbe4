// Package dispatch decides whether a model-proposed tool call may run.
// The completion service suggests mutations; it never authorizes them.
// Structure-changing calls execute only when an explicit-intent detection
// fired on the user's own words, otherwise they are downgraded into a
// candidate flow that asks for confirmation first. Every outcome is
// normalized and audited.
package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/candidate"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/ledger"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/perception"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/plan"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// Result is the normalized outcome of dispatching one tool call or
// resuming one candidate turn.
type Result struct {
	Reply      string
	Outcome    types.Outcome
	Tool       string
	Executed   bool // a storage mutation was attempted
	Downgraded bool // call was turned into a confirmation flow instead
}

// Dispatcher guards and routes tool calls.
type Dispatcher struct {
	adapter *plan.Adapter
	machine *candidate.Machine
	audit   *ledger.Writer
}

// NewDispatcher wires the dispatcher. audit may be nil in tests.
func NewDispatcher(adapter *plan.Adapter, machine *candidate.Machine, audit *ledger.Writer) *Dispatcher {
	return &Dispatcher{adapter: adapter, machine: machine, audit: audit}
}

// toolVerbs maps each structure-mutating tool to the explicit verbs that
// authorize it. track_progress is absent: logging progress is append-only
// and reversible, so it never needs the gate.
var toolVerbs = map[string][]perception.IntentVerb{
	ToolCreateAction:    {perception.VerbCreate},
	ToolCreateFramework: {perception.VerbCreate},
	ToolUpdateAction:    {perception.VerbUpdate},
	ToolActivateAction:  {perception.VerbActivate},
	ToolArchiveAction:   {perception.VerbArchive, perception.VerbDelete, perception.VerbDeactivate},
}

// ============================================================================
// CANDIDATE RESUME (steps that never reach the completion service)
// ============================================================================

// Resume advances an active candidate with the user's message. Returns
// false when no candidate is active and the normal turn flow should run.
// Cancellation and pending deterministic questions (which day to drop)
// are resolved here without any model round-trip.
func (d *Dispatcher) Resume(ctx context.Context, userID, message string, state *types.SessionState) (Result, bool) {
	cand := state.Candidate
	if cand == nil || cand.Status.Terminal() {
		return Result{}, false
	}

	tool := candidateTool(cand)
	reply := d.machine.HandleReply(ctx, userID, cand, message)
	if reply.Done {
		state.Candidate = nil
	}
	logging.Dispatch("Resume: candidate %s -> %s (done=%v)", cand.ID, cand.Status, reply.Done)
	return Result{
		Reply:    reply.Text,
		Outcome:  reply.Outcome,
		Tool:     tool,
		Executed: reply.Outcome != types.OutcomeNone,
	}, true
}

// candidateTool names the mutation a candidate commits, so resumed turns
// report it in executedTools like a direct dispatch would.
func candidateTool(cand *types.Candidate) string {
	switch cand.Kind {
	case types.CandidateUpdate:
		return ToolUpdateAction
	case types.CandidateBreakdown:
		return ToolBreakDownAction
	default:
		if cand.Proposed.Kind == types.KindFramework {
			return ToolCreateFramework
		}
		return ToolCreateAction
	}
}

// ============================================================================
// TOOL DISPATCH
// ============================================================================

// Dispatch validates, guards, and executes one model-proposed tool call.
// userMessage is the user's verbatim text for the explicit-intent check.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, userMessage string, call types.ToolCall, state *types.SessionState) Result {
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	d.emit(userID, ledger.EventToolAttempted, call.Name, "", call.ID)

	parsed, err := ParseArgs(call)
	if err != nil {
		logging.Dispatch("Dispatch: invalid args for %s: %v", call.Name, err)
		return d.finish(userID, call, Result{
			Reply:   "Désolée, je n'ai pas réussi à faire ça proprement. On réessaie ?",
			Outcome: types.OutcomeFailed,
			Tool:    call.Name,
		})
	}

	if verbs, gated := toolVerbs[call.Name]; gated && !intentFired(userMessage, verbs) {
		logging.Dispatch("Dispatch: no explicit intent for %s, downgrading to candidate", call.Name)
		return d.finish(userID, call, d.downgrade(userID, parsed, call.Name, state))
	}

	var res Result
	switch {
	case parsed.Track != nil:
		res = d.handleTrack(ctx, userID, parsed.Track)
	case parsed.Create != nil:
		res = d.handleCreate(ctx, userID, parsed.Create, call.Name, state)
	case parsed.Update != nil:
		res = d.handleUpdate(ctx, userID, parsed.Update, state)
	case parsed.Activate != nil:
		res = d.handleActivate(userID, parsed.Activate)
	case parsed.Archive != nil:
		res = d.handleArchive(userID, parsed.Archive)
	case parsed.Break != nil:
		res = d.handleBreakdown(userID, parsed.Break, state)
	default:
		res = Result{Outcome: types.OutcomeFailed, Reply: "Désolée, je n'ai pas compris quoi faire."}
	}
	res.Tool = call.Name
	return d.finish(userID, call, res)
}

func intentFired(userMessage string, verbs []perception.IntentVerb) bool {
	intent := perception.DetectExplicitIntent(userMessage)
	if !intent.Fired {
		return false
	}
	for _, v := range verbs {
		if intent.Verb == v {
			return true
		}
	}
	return false
}

// downgrade turns an unauthorized mutation into a confirmation flow.
func (d *Dispatcher) downgrade(userID string, parsed ParsedArgs, tool string, state *types.SessionState) Result {
	switch {
	case parsed.Create != nil:
		cand, reply := d.machine.StartCreate(userID, parsed.Create.Draft)
		return d.stash(state, cand, reply, tool)

	case parsed.Update != nil:
		item, err := d.adapter.FindItem(userID, parsed.Update.ItemRef)
		if err != nil || item == nil {
			return unknownItem(parsed.Update.ItemRef, tool)
		}
		cand, reply := d.machine.StartUpdate(userID, item, parsed.Update.Draft)
		return d.stash(state, cand, reply, tool)

	case parsed.Activate != nil:
		return d.statusCandidate(userID, parsed.Activate.ItemRef, types.ItemActive, tool, state)

	case parsed.Archive != nil:
		return d.statusCandidate(userID, parsed.Archive.ItemRef, types.ItemArchived, tool, state)

	default:
		return Result{
			Reply:   "Je préfère qu'on en reparle avant de toucher à ton plan. Qu'est-ce que tu veux faire exactement ?",
			Outcome: types.OutcomeNone,
			Tool:    tool,
		}
	}
}

// statusCandidate previews a status flip as an update candidate.
func (d *Dispatcher) statusCandidate(userID, itemRef string, status types.ItemStatus, tool string, state *types.SessionState) Result {
	item, err := d.adapter.FindItem(userID, itemRef)
	if err != nil || item == nil {
		return unknownItem(itemRef, tool)
	}
	cand, reply := d.machine.StartUpdate(userID, item, types.ItemDraft{Status: status})
	return d.stash(state, cand, reply, tool)
}

func (d *Dispatcher) stash(state *types.SessionState, cand *types.Candidate, reply candidate.Reply, tool string) Result {
	if !reply.Done {
		state.Candidate = cand
	}
	return Result{
		Reply:      reply.Text,
		Outcome:    reply.Outcome,
		Tool:       tool,
		Executed:   reply.Outcome != types.OutcomeNone,
		Downgraded: !reply.Done,
	}
}

// ============================================================================
// HANDLERS (explicit intent confirmed)
// ============================================================================

func (d *Dispatcher) handleTrack(ctx context.Context, userID string, a *TrackProgressArgs) Result {
	entry := &types.LogEntry{Status: a.Status, Value: a.Value, Note: a.Note, Reason: a.Reason}
	res := d.adapter.TrackProgress(ctx, userID, a.ItemRef, entry)
	return fromPlanResult(res)
}

func (d *Dispatcher) handleCreate(ctx context.Context, userID string, a *CreateActionArgs, tool string, state *types.SessionState) Result {
	cand, reply := d.machine.StartCreate(userID, a.Draft)
	if cand.Status == types.CandPreviewing {
		// Intent already explicit; commit without a second confirmation.
		reply = d.machine.CommitNow(ctx, userID, cand)
	}
	return d.stash(state, cand, reply, tool)
}

func (d *Dispatcher) handleUpdate(ctx context.Context, userID string, a *UpdateActionArgs, state *types.SessionState) Result {
	item, err := d.adapter.FindItem(userID, a.ItemRef)
	if err != nil || item == nil {
		return unknownItem(a.ItemRef, ToolUpdateAction)
	}
	cand, reply := d.machine.StartUpdate(userID, item, a.Draft)
	if cand.Status == types.CandPreviewing {
		reply = d.machine.CommitNow(ctx, userID, cand)
	}
	if !reply.Done {
		// Frequency guard fired; the candidate holds the open question.
		state.Candidate = cand
	}
	return Result{Reply: reply.Text, Outcome: reply.Outcome, Executed: reply.Done}
}

func (d *Dispatcher) handleActivate(userID string, a *ItemRefArgs) Result {
	item, err := d.adapter.FindItem(userID, a.ItemRef)
	if err != nil || item == nil {
		return unknownItem(a.ItemRef, ToolActivateAction)
	}

	missing, err := d.adapter.MissingPrerequisites(userID, item)
	if err != nil {
		return Result{Reply: "Désolée, je n'arrive pas à vérifier ton plan là. On réessaie ?", Outcome: types.OutcomeFailed}
	}
	if len(missing) > 0 {
		// Never a silent activation: the blockers are named.
		text := fmt.Sprintf("Je ne peux pas encore activer « %s » : il faut d'abord activer", item.Title)
		for i, title := range missing {
			if i > 0 {
				text += ","
			}
			text += fmt.Sprintf(" « %s »", title)
		}
		text += "."
		logging.Dispatch("handleActivate: %s blocked on %d prerequisites", item.ID, len(missing))
		return Result{Reply: text, Outcome: types.OutcomeBlocked}
	}

	return fromPlanResult(d.adapter.SetStatus(userID, item.ID, types.ItemActive))
}

func (d *Dispatcher) handleArchive(userID string, a *ItemRefArgs) Result {
	item, err := d.adapter.FindItem(userID, a.ItemRef)
	if err != nil || item == nil {
		return unknownItem(a.ItemRef, ToolArchiveAction)
	}
	return fromPlanResult(d.adapter.SetStatus(userID, item.ID, types.ItemArchived))
}

func (d *Dispatcher) handleBreakdown(userID string, a *ItemRefArgs, state *types.SessionState) Result {
	item, err := d.adapter.FindItem(userID, a.ItemRef)
	if err != nil || item == nil {
		return unknownItem(a.ItemRef, ToolBreakDownAction)
	}
	// Breakdown is inherently interactive: it needs the blocker and ends
	// on a preview, so it always goes through the candidate flow.
	cand, reply := d.machine.StartBreakdown(userID, item)
	return d.stash(state, cand, reply, ToolBreakDownAction)
}

// ============================================================================
// OUTCOME NORMALIZATION
// ============================================================================

func fromPlanResult(res plan.Result) Result {
	return Result{Reply: res.Message, Outcome: res.Outcome, Executed: true}
}

func unknownItem(ref, tool string) Result {
	return Result{
		Reply:   fmt.Sprintf("Je ne trouve pas « %s » dans ton plan. Tu peux me redonner son nom exact ?", ref),
		Outcome: types.OutcomeBlocked,
		Tool:    tool,
	}
}

func (d *Dispatcher) finish(userID string, call types.ToolCall, res Result) Result {
	if res.Outcome == "" {
		res.Outcome = types.OutcomeNone
	}
	if res.Tool == "" {
		res.Tool = call.Name
	}
	d.emit(userID, ledger.EventToolExecuted, call.Name, string(res.Outcome), call.ID)
	return res
}

func (d *Dispatcher) emit(userID, eventType, tool, outcome, callID string) {
	if d.audit == nil {
		return
	}
	d.audit.Record(store.LedgerEvent{
		UserID:    userID,
		EventType: eventType,
		Tool:      tool,
		Outcome:   outcome,
		Detail:    callID,
		DedupKey:  ledger.Key(userID, eventType, tool, callID),
	})
}
