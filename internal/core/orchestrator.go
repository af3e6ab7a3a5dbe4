// Package core wires the conversation turn: deterministic resumes first,
// the completion service only when no state machine is waiting, dispatcher
// guards on every proposed mutation, and the session state persisted at
// the end of each turn. The orchestrator itself is stateless; everything
// that must survive between turns lives in the SessionState blob.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/candidate"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/checkup"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/config"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/dispatch"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/ledger"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/perception"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/plan"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

const systemPrompt = `Tu es Sophia, une coach bienveillante et directe qui aide l'utilisateur
à construire et tenir un plan d'actions (habitudes, missions, exercices).
Tu réponds en français, en deux ou trois phrases, sans jargon.
Tu ne modifies JAMAIS le plan de ta propre initiative : tu proposes, via les
outils fournis, et la couche applicative demande confirmation si besoin.`

// TurnResult is the outcome of one processed conversation turn.
type TurnResult struct {
	ReplyText       string
	ExecutedTools   []string
	Outcome         types.Outcome
	NewSessionState *types.SessionState
}

// Orchestrator processes conversation turns.
type Orchestrator struct {
	cfg        *config.Config
	store      *store.Store
	adapter    *plan.Adapter
	machine    *candidate.Machine
	scanner    *checkup.Scanner
	dispatcher *dispatch.Dispatcher
	audit      *ledger.Writer

	llm    types.LLMClient
	recall types.RecallService
}

// New assembles the orchestration stack around a store and collaborators.
func New(cfg *config.Config, st *store.Store, llm types.LLMClient, recall types.RecallService) *Orchestrator {
	audit := ledger.NewWriter(st)
	adapter := plan.NewAdapter(st)
	o := &Orchestrator{
		cfg:     cfg,
		store:   st,
		adapter: adapter,
		audit:   audit,
		llm:     llm,
		recall:  recall,
	}
	o.machine = candidate.NewMachine(adapter, audit, &microStepGenerator{llm: llm})
	o.scanner = checkup.NewScanner(adapter, st, o.machine).
		WithThresholds(cfg.Staleness(), cfg.Coach.MissedStreakThreshold, cfg.Coach.CompletedStreakThreshold)
	o.dispatcher = dispatch.NewDispatcher(adapter, o.machine, audit)
	return o
}

// Close flushes background writers.
func (o *Orchestrator) Close() {
	o.audit.Flush()
}

// checkupTriggers start a checkup session from the user's own words.
var checkupTriggers = []string{
	"on fait le point", "fais le point", "faisons le point", "on fait un point",
	"checkup", "check up", "bilan du jour", "petit bilan", "on fait le bilan",
}

func wantsCheckup(message string) bool {
	n := perception.Normalize(message)
	for _, t := range checkupTriggers {
		if perception.ContainsPhrase(n, t) {
			return true
		}
	}
	return false
}

// ProcessTurn runs one conversation turn. A nil state is loaded from the
// store; the (possibly mutated) state is persisted before returning, so a
// crash mid-turn never leaves a half-applied candidate.
func (o *Orchestrator) ProcessTurn(ctx context.Context, userID, message string, history []types.Message, state *types.SessionState) (*TurnResult, error) {
	timer := logging.StartTimer(logging.CategoryTurn, "ProcessTurn")
	defer timer.Stop()

	if state == nil {
		loaded, err := o.store.LoadSession(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		state = loaded
	}

	res := o.runTurn(ctx, userID, message, history, state)
	res.NewSessionState = state

	if err := o.store.SaveSession(state); err != nil {
		logging.Session("ProcessTurn: session save failed for %s: %v", userID, err)
	}
	logging.Turn("ProcessTurn: user=%s outcome=%s tools=%v", userID, res.Outcome, res.ExecutedTools)
	return res, nil
}

func (o *Orchestrator) runTurn(ctx context.Context, userID, message string, history []types.Message, state *types.SessionState) *TurnResult {
	// Deterministic resumes bypass the completion service entirely and run
	// under a hard timeout to keep latency predictable.
	dctx, cancel := context.WithTimeout(ctx, o.cfg.DeterministicTimeout())
	defer cancel()

	if r, handled := o.dispatcher.Resume(dctx, userID, message, state); handled {
		res := &TurnResult{ReplyText: r.Reply, Outcome: r.Outcome}
		if r.Executed && r.Tool != "" {
			res.ExecutedTools = append(res.ExecutedTools, r.Tool)
		}
		// A resolved candidate hands control back to a suspended checkup.
		if state.Candidate == nil && state.Checkup != nil {
			next := o.scanner.Resume(userID, state, time.Now())
			if next.Text != "" {
				res.ReplyText = strings.TrimSpace(res.ReplyText + "\n\n" + next.Text)
			}
		}
		return res
	}

	if state.Checkup != nil {
		r := o.scanner.HandleReply(dctx, userID, state, message, time.Now())
		return checkupResult(r)
	}

	if wantsCheckup(message) {
		r, err := o.scanner.Begin(userID, state, time.Now())
		if err != nil {
			logging.Turn("runTurn: checkup begin failed: %v", err)
			return &TurnResult{ReplyText: retryReply, Outcome: types.OutcomeFailed}
		}
		return &TurnResult{ReplyText: r.Text, Outcome: types.OutcomeNone}
	}

	return o.modelTurn(ctx, userID, message, history, state)
}

const retryReply = "Désolée, j'ai eu un souci de mon côté. Tu peux reformuler ou réessayer dans un instant ?"

// checkupResult maps a checkup turn to the turn contract: a recorded log
// entry is a track_progress execution and reports its dual-write outcome.
func checkupResult(r checkup.Reply) *TurnResult {
	res := &TurnResult{ReplyText: r.Text, Outcome: types.OutcomeNone}
	if r.Outcome != "" && r.Outcome != types.OutcomeNone {
		res.Outcome = r.Outcome
		res.ExecutedTools = append(res.ExecutedTools, dispatch.ToolTrackProgress)
	}
	return res
}

// modelTurn consults the completion service and guards whatever it
// proposes. Upstream failures surface as a plain apology with the turn
// state preserved for a retry.
func (o *Orchestrator) modelTurn(ctx context.Context, userID, message string, history []types.Message, state *types.SessionState) *TurnResult {
	prompt := o.buildSystemPrompt(ctx, userID, message)

	resp, err := o.llm.CompleteWithTools(ctx, prompt, history, message, toolDefinitions(),
		types.ToolChoice{Mode: types.ToolChoiceAuto})
	if err != nil {
		logging.Turn("modelTurn: completion failed: %v", err)
		return &TurnResult{ReplyText: retryReply, Outcome: types.OutcomeFailed}
	}

	if len(resp.ToolCalls) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			text = "Je t'écoute. Dis-m'en un peu plus ?"
		}
		return &TurnResult{ReplyText: text, Outcome: types.OutcomeNone}
	}

	// One mutation per turn: only the first proposed call is considered.
	call := resp.ToolCalls[0]
	r := o.dispatcher.Dispatch(ctx, userID, message, call, state)

	res := &TurnResult{ReplyText: r.Reply, Outcome: r.Outcome}
	if r.Executed {
		res.ExecutedTools = append(res.ExecutedTools, r.Tool)
	}
	if text := strings.TrimSpace(resp.Text); text != "" && r.Outcome == types.OutcomeSuccess {
		res.ReplyText = text + "\n\n" + r.Reply
	}
	return res
}

func (o *Orchestrator) buildSystemPrompt(ctx context.Context, userID, message string) string {
	prompt := systemPrompt

	if doc, err := o.adapter.LoadPlan(userID); err == nil {
		if summary := planSummary(doc); summary != "" {
			prompt += "\n\nPlan actuel de l'utilisateur :\n" + summary
		}
	}

	if o.recall != nil {
		topK := o.cfg.Recall.TopK
		if topK <= 0 {
			topK = 5
		}
		if snippets, err := o.recall.Recall(ctx, message, topK); err == nil && len(snippets) > 0 {
			prompt += "\n\nÉléments de contexte sur l'utilisateur :"
			for _, sn := range snippets {
				prompt += "\n- " + sn.Content
			}
		}
	}
	return prompt
}

func planSummary(doc *types.PlanDocument) string {
	var b strings.Builder
	for i, phase := range doc.Phases {
		if len(phase.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "Phase %d (%s) :\n", i+1, phase.Status)
		for _, it := range phase.Items {
			fmt.Fprintf(&b, "- %s [%s, %s]", it.Title, it.Kind, it.Status)
			if it.TargetReps > 0 {
				fmt.Fprintf(&b, " %d×/semaine", it.TargetReps)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}
