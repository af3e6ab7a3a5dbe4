package candidate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/ledger"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/perception"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/plan"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// HandleReply advances an active candidate with one user message. The
// caller owns persistence of the mutated candidate (or its removal when
// Reply.Done).
func (m *Machine) HandleReply(ctx context.Context, userID string, cand *types.Candidate, message string) Reply {
	cand.UpdatedAt = time.Now()

	if perception.IsCancellation(message) {
		return m.abandon(userID, cand, ReasonCancelled,
			"Pas de souci, on laisse tomber. Dis-moi si tu veux y revenir.")
	}

	switch cand.Status {
	case types.CandExploring:
		return m.handleExploring(userID, cand, message)
	case types.CandAwaitingConfirm:
		return m.handleAwaitingConfirm(userID, cand, message)
	case types.CandAwaitingTarget:
		return m.handleAwaitingTarget(userID, cand, message)
	case types.CandAwaitingBlocker:
		return m.handleAwaitingBlocker(ctx, userID, cand, message)
	case types.CandPreviewing:
		if cand.PendingQuestion == QuestionDropDay {
			return m.resolveDropDay(userID, cand, message)
		}
		return m.handlePreviewing(ctx, userID, cand, message)
	default:
		logging.Candidate("HandleReply: unexpected status %s for %s", cand.Status, cand.ID)
		return m.abandon(userID, cand, ReasonTooAmbiguous,
			"Je me suis un peu perdue. On reprend depuis le début quand tu veux.")
	}
}

// ============================================================================
// CREATE FLOW STEPS
// ============================================================================

func (m *Machine) handleExploring(userID string, cand *types.Candidate, message string) Reply {
	if consent := perception.ClassifyConsent(message); consent.Class == perception.ConsentNegative {
		return m.abandon(userID, cand, ReasonDeclined,
			"D'accord, on ne rajoute rien pour l'instant.")
	}

	title := strings.TrimSpace(message)
	if title == "" {
		return m.clarify(userID, cand, "Dis-moi juste en quelques mots ce que tu veux mettre en place.")
	}
	if len([]rune(title)) > 80 {
		title = string([]rune(title)[:80])
	}
	cand.Proposed.Title = title
	if cand.Proposed.Kind == "" {
		cand.Proposed.Kind = types.KindHabit
	}

	if needsFrequency(cand.Proposed) {
		cand.Status = types.CandAwaitingConfirm
		return Reply{
			Text:    fmt.Sprintf("« %s », très bien. Combien de fois par semaine ?", title),
			Outcome: types.OutcomeNone,
		}
	}
	return m.showPreview(userID, cand)
}

func (m *Machine) handleAwaitingConfirm(userID string, cand *types.Candidate, message string) Reply {
	consent := perception.ClassifyConsent(message)
	switch consent.Class {
	case perception.ConsentNegative:
		return m.abandon(userID, cand, ReasonDeclined,
			"Pas de problème, on oublie cette idée pour le moment.")
	case perception.ConsentModify:
		patchDraft(&cand.Proposed, consent.Value)
		if needsFrequency(cand.Proposed) {
			return m.clarify(userID, cand, "Il me manque encore la fréquence. Combien de fois par semaine ?")
		}
		return m.showPreview(userID, cand)
	default:
		return m.clarify(userID, cand,
			fmt.Sprintf("Pour « %s », combien de fois par semaine ? Un chiffre entre 1 et 7 suffit.", cand.Proposed.Title))
	}
}

// ============================================================================
// BREAKDOWN FLOW STEPS
// ============================================================================

func (m *Machine) handleAwaitingTarget(userID string, cand *types.Candidate, message string) Reply {
	item, err := m.adapter.FindItem(userID, strings.TrimSpace(message))
	if err != nil || item == nil {
		return m.clarify(userID, cand,
			"Je ne retrouve pas cette action dans ton plan. Tu peux me redonner son nom exact ?")
	}
	cand.TargetID = item.ID
	cand.TargetTitle = item.Title
	cand.Status = types.CandAwaitingBlocker
	return Reply{
		Text:    fmt.Sprintf("On va rendre « %s » plus facile. Qu'est-ce qui coince en ce moment ?", item.Title),
		Outcome: types.OutcomeNone,
	}
}

func (m *Machine) handleAwaitingBlocker(ctx context.Context, userID string, cand *types.Candidate, message string) Reply {
	blocker := strings.TrimSpace(message)
	if blocker == "" {
		return m.clarify(userID, cand, "Qu'est-ce qui rend ça difficile, concrètement ?")
	}
	cand.Blocker = blocker
	cand.Status = types.CandGenerating

	if m.generator == nil {
		return m.abandon(userID, cand, ReasonNoProposalGenerated,
			"Je n'ai pas réussi à te proposer un micro-pas cette fois. On pourra réessayer plus tard.")
	}
	draft, err := m.generator.GenerateMicroStep(ctx, cand.TargetTitle, blocker)
	if err != nil || strings.TrimSpace(draft.Title) == "" {
		logging.Candidate("handleAwaitingBlocker: generation failed for %s: %v", cand.ID, err)
		return m.abandon(userID, cand, ReasonNoProposalGenerated,
			"Je n'ai pas réussi à te proposer un micro-pas cette fois. On pourra réessayer plus tard.")
	}
	if draft.Kind == "" {
		draft.Kind = types.KindHabit
	}
	cand.Proposed = draft
	return m.showPreview(userID, cand)
}

// ============================================================================
// PREVIEWING
// ============================================================================

func (m *Machine) handlePreviewing(ctx context.Context, userID string, cand *types.Candidate, message string) Reply {
	consent := perception.ClassifyConsent(message)
	switch consent.Class {
	case perception.ConsentAffirmative:
		return m.commit(ctx, userID, cand)

	case perception.ConsentNegative:
		return m.abandon(userID, cand, ReasonDeclined,
			"Très bien, on en reste là. C'est toi qui décides.")

	case perception.ConsentModify:
		if cand.ClarificationCount >= 1 {
			return m.abandon(userID, cand, ReasonTooAmbiguous,
				"On tourne un peu en rond, je préfère ne rien changer pour l'instant. Redis-moi quand ce sera plus clair pour toi.")
		}
		cand.ClarificationCount++
		patchDraft(&cand.Proposed, consent.Value)
		if cand.Kind == types.CandidateUpdate {
			m.refreshChanges(userID, cand)
		}
		m.emit(userID, ledger.EventClarificationAsked, cand, fmt.Sprintf("clar=%d", cand.ClarificationCount))
		return m.showPreview(userID, cand)

	default: // unclear
		if cand.ClarificationCount >= 1 {
			return m.abandon(userID, cand, ReasonTooAmbiguous,
				"Je ne suis pas sûre de comprendre, donc je ne touche à rien. On pourra y revenir.")
		}
		cand.ClarificationCount++
		m.emit(userID, ledger.EventClarificationAsked, cand, fmt.Sprintf("clar=%d", cand.ClarificationCount))
		return Reply{Text: "Juste pour être sûre : c'est oui ou c'est non ?", Outcome: types.OutcomeNone}
	}
}

// refreshChanges recomputes the update diff after a parameter patch.
func (m *Machine) refreshChanges(userID string, cand *types.Candidate) {
	item, err := m.adapter.FindItem(userID, cand.TargetID)
	if err != nil || item == nil {
		return
	}
	cand.Changes = diffChanges(item, cand.Proposed)
}

// ============================================================================
// COMMIT
// ============================================================================

// CommitNow applies a candidate without waiting for a preview reply. Only
// used when the user's own words already carried explicit intent; the
// frequency-reduction and prerequisite guards still apply.
func (m *Machine) CommitNow(ctx context.Context, userID string, cand *types.Candidate) Reply {
	return m.commit(ctx, userID, cand)
}

func (m *Machine) commit(ctx context.Context, userID string, cand *types.Candidate) Reply {
	switch cand.Kind {
	case types.CandidateUpdate:
		return m.commitUpdate(userID, cand)
	case types.CandidateBreakdown:
		return m.commitBreakdown(userID, cand)
	default:
		return m.commitCreate(userID, cand)
	}
}

func (m *Machine) commitCreate(userID string, cand *types.Candidate) Reply {
	res := m.adapter.CreateItem(userID, cand.Proposed, types.ItemActive)
	return m.finishCommit(userID, cand, res, types.CandCreated)
}

func (m *Machine) commitBreakdown(userID string, cand *types.Candidate) Reply {
	res := m.adapter.CreateItem(userID, cand.Proposed, types.ItemActive)
	if res.Outcome == types.OutcomeSuccess {
		res.Message = fmt.Sprintf("C'est parti : « %s ». Deux minutes, pas plus. « %s » attendra que ça roule.",
			cand.Proposed.Title, cand.TargetTitle)
	}
	return m.finishCommit(userID, cand, res, types.CandApplied)
}

func (m *Machine) commitUpdate(userID string, cand *types.Candidate) Reply {
	if len(cand.Changes) == 0 {
		return m.abandon(userID, cand, ReasonNoChanges,
			fmt.Sprintf("En fait il n'y a rien à changer sur « %s ». Je n'ai touché à rien.", cand.TargetTitle))
	}

	item, err := m.adapter.FindItem(userID, cand.TargetID)
	if err != nil || item == nil {
		return m.abandon(userID, cand, ReasonNoChanges,
			"Je ne retrouve plus cette action dans ton plan, donc je n'ai rien modifié.")
	}

	if cand.Proposed.Status == types.ItemActive && item.Status != types.ItemActive {
		missing, perr := m.adapter.MissingPrerequisites(userID, item)
		if perr == nil && len(missing) > 0 {
			cand.Status = types.CandAbandoned
			m.emit(userID, ledger.EventCandidateAbandoned, cand, "prerequisite")
			return Reply{
				Text: fmt.Sprintf("Je ne peux pas encore activer « %s » : il faut d'abord activer %s.",
					item.Title, joinTitles(missing)),
				Outcome: types.OutcomeBlocked,
				Done:    true,
				Reason:  "prerequisite",
			}
		}
	}

	newTarget := cand.Proposed.TargetReps
	if newTarget > 0 && newTarget < item.TargetReps && len(cand.Proposed.Schedule.Days) == 0 {
		if guard := plan.CheckFrequencyReduction(item, newTarget); guard != nil {
			// Keep the candidate alive and wait for a deterministic answer
			// instead of truncating the schedule ourselves.
			cand.PendingQuestion = QuestionDropDay
			logging.Candidate("commitUpdate: frequency guard fired for %s", cand.ID)
			return Reply{Text: guard.Message, Outcome: types.OutcomeBlocked}
		}
	}

	applyDraft(item, cand.Proposed)
	res := m.adapter.ApplyUpdate(userID, item)
	return m.finishCommit(userID, cand, res, types.CandApplied)
}

// resolveDropDay handles the answer to "which day do I remove?". Pure
// deterministic resolution, the completion service is never consulted.
func (m *Machine) resolveDropDay(userID string, cand *types.Candidate, message string) Reply {
	item, err := m.adapter.FindItem(userID, cand.TargetID)
	if err != nil || item == nil {
		return m.abandon(userID, cand, ReasonNoChanges,
			"Je ne retrouve plus cette action dans ton plan, donc je n'ai rien modifié.")
	}

	day := perception.ExtractDay(message)
	if day == "" || !item.Schedule.HasDay(day) {
		if cand.ClarificationCount >= 1 {
			return m.abandon(userID, cand, ReasonTooAmbiguous,
				"Je n'arrive pas à savoir quel jour retirer, donc je laisse tout comme avant.")
		}
		cand.ClarificationCount++
		m.emit(userID, ledger.EventClarificationAsked, cand, fmt.Sprintf("clar=%d", cand.ClarificationCount))
		return Reply{
			Text:    fmt.Sprintf("Il me faut un des jours déjà programmés : %s.", frenchDays(item.Schedule.Days)),
			Outcome: types.OutcomeNone,
		}
	}

	days := make([]string, 0, len(item.Schedule.Days)-1)
	for _, d := range item.Schedule.Days {
		if d != day {
			days = append(days, d)
		}
	}
	cand.Proposed.Schedule.Days = days
	cand.PendingQuestion = ""

	if cand.Proposed.TargetReps > 0 && len(days) > cand.Proposed.TargetReps {
		// Still one day too many; ask again.
		cand.PendingQuestion = QuestionDropDay
		return Reply{
			Text: fmt.Sprintf("Il reste %d jours programmés pour %d×/semaine. Lequel d'autre veux-tu retirer ?",
				len(days), cand.Proposed.TargetReps),
			Outcome: types.OutcomeBlocked,
		}
	}

	applyDraft(item, cand.Proposed)
	res := m.adapter.ApplyUpdate(userID, item)
	return m.finishCommit(userID, cand, res, types.CandApplied)
}

func (m *Machine) finishCommit(userID string, cand *types.Candidate, res plan.Result, terminal types.CandidateStatus) Reply {
	if res.Outcome != types.OutcomeSuccess && res.Outcome != types.OutcomeUncertain {
		// Honest failure; the candidate dies rather than looping.
		cand.Status = types.CandAbandoned
		m.emit(userID, ledger.EventCandidateAbandoned, cand, res.Code)
		return Reply{Text: res.Message, Outcome: res.Outcome, Done: true, Reason: res.Code}
	}
	cand.Status = terminal
	m.emit(userID, ledger.EventCandidateCompleted, cand, string(res.Outcome))
	logging.Candidate("finishCommit: %s candidate %s -> %s (%s)", cand.Kind, cand.ID, terminal, res.Outcome)
	return Reply{Text: res.Message, Outcome: res.Outcome, Done: true}
}

// ============================================================================
// SHARED HELPERS
// ============================================================================

func (m *Machine) abandon(userID string, cand *types.Candidate, reason, text string) Reply {
	cand.Status = types.CandAbandoned
	m.emit(userID, ledger.EventCandidateAbandoned, cand, reason)
	logging.Candidate("abandon: candidate %s (%s)", cand.ID, reason)
	return Reply{Text: text, Outcome: types.OutcomeNone, Done: true, Reason: reason}
}

// clarify asks once; a second ambiguous round abandons.
func (m *Machine) clarify(userID string, cand *types.Candidate, question string) Reply {
	if cand.ClarificationCount >= 1 {
		return m.abandon(userID, cand, ReasonTooAmbiguous,
			"Je préfère ne rien faire tant que ce n'est pas clair. On y reviendra.")
	}
	cand.ClarificationCount++
	m.emit(userID, ledger.EventClarificationAsked, cand, fmt.Sprintf("clar=%d", cand.ClarificationCount))
	return Reply{Text: question, Outcome: types.OutcomeNone}
}

func joinTitles(titles []string) string {
	quoted := make([]string, len(titles))
	for i, t := range titles {
		quoted[i] = fmt.Sprintf("« %s »", t)
	}
	return strings.Join(quoted, ", ")
}

func patchDraft(d *types.ItemDraft, v perception.ModValue) {
	if v.Frequency != nil {
		d.TargetReps = *v.Frequency
	}
	if len(v.Days) > 0 {
		d.Schedule.Days = v.Days
	}
	if v.TimeOfDay != "" {
		d.Schedule.TimeOfDay = types.TimeOfDay(v.TimeOfDay)
	}
}

// applyDraft copies the non-zero fields of a proposed draft onto an item.
func applyDraft(item *types.TrackableItem, d types.ItemDraft) {
	if d.TargetReps > 0 {
		item.TargetReps = d.TargetReps
	}
	if len(d.Schedule.Days) > 0 {
		item.Schedule.Days = d.Schedule.Days
	}
	if d.Schedule.TimeOfDay != "" {
		item.Schedule.TimeOfDay = d.Schedule.TimeOfDay
	}
	if t := strings.TrimSpace(d.Title); t != "" {
		item.Title = t
	}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		item.Description = desc
	}
	if d.Status != "" {
		item.Status = d.Status
	}
}
