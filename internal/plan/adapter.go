// Package plan implements the dual-write adapter between the normalized
// trackable-item rows and the phase-organized plan document. Rows are
// authoritative; the document is a read-optimized projection rewritten
// whole on every mutation. Creation is verified by reading both sides
// back; disagreement is reported as uncertain, never as silent success.
package plan

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// Result is the normalized outcome of one adapter operation.
type Result struct {
	Outcome types.Outcome
	Code    string // machine-readable detail: duplicate, frequency_reduction, verification_mismatch...
	Message string // French user-facing copy
	ItemID  string
	Missing []string // enumerated blockers (prerequisite titles, excess days)
}

func success(itemID, msg string) Result {
	return Result{Outcome: types.OutcomeSuccess, ItemID: itemID, Message: msg}
}

func blocked(code, msg string) Result {
	return Result{Outcome: types.OutcomeBlocked, Code: code, Message: msg}
}

func failed(msg string) Result {
	return Result{Outcome: types.OutcomeFailed, Code: "store_write_failure", Message: msg}
}

func uncertain(itemID string) Result {
	return Result{
		Outcome: types.OutcomeUncertain,
		Code:    "verification_mismatch",
		ItemID:  itemID,
		Message: "J'ai tenté l'enregistrement mais je n'arrive pas à le confirmer. Vérifie ton plan avant de réessayer.",
	}
}

const retryMsg = "Désolée, je n'ai pas réussi à enregistrer ça. On peut réessayer dans un instant ?"

// Adapter mediates every plan mutation.
type Adapter struct {
	store *store.Store
}

// NewAdapter wraps a store.
func NewAdapter(s *store.Store) *Adapter {
	return &Adapter{store: s}
}

// ============================================================================
// CREATE
// ============================================================================

// CreateItem inserts a new item into the user's active phase. The title is
// checked (trimmed, case-insensitive) against existing items in that phase
// before any write; an exact match reports duplicate and writes nothing.
func (a *Adapter) CreateItem(userID string, draft types.ItemDraft, status types.ItemStatus) Result {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return blocked("empty_title", "Il me faut un nom pour cette action avant de l'ajouter.")
	}

	doc, err := a.store.LoadPlan(userID)
	if err != nil {
		logging.Plan("CreateItem: plan load failed: %v", err)
		return failed(retryMsg)
	}
	phase := doc.ActivePhase()
	if phase < 0 {
		phase = 0
	}

	if a.titleExistsInPhase(userID, title, phase) {
		logging.Plan("CreateItem: duplicate title %q in phase %d", title, phase)
		return blocked("duplicate",
			fmt.Sprintf("Tu as déjà « %s » dans ton plan, je ne vais pas le dupliquer.", title))
	}

	item := &types.TrackableItem{
		ID:           uuid.New().String(),
		UserID:       userID,
		Kind:         draft.Kind,
		Title:        title,
		Description:  draft.Description,
		TrackingMode: draft.TrackingMode,
		TargetReps:   draft.TargetReps,
		Schedule:     draft.Schedule,
		Status:       status,
		Phase:        phase,
	}
	if item.Kind == "" {
		item.Kind = types.KindHabit
	}
	if item.TrackingMode == "" {
		item.TrackingMode = types.TrackingBoolean
	}

	if err := a.store.CreateItem(item); err != nil {
		logging.Plan("CreateItem: row insert failed: %v", err)
		return failed(retryMsg)
	}

	doc.Phases[phase].Items = append(doc.Phases[phase].Items, projectItem(item))
	if err := a.store.SavePlan(userID, doc); err != nil {
		// Row written, document not. No cross-store transaction exists, so
		// this surfaces as uncertain rather than being rolled back.
		logging.Plan("CreateItem: document rewrite failed after row insert: %v", err)
		return uncertain(item.ID)
	}

	return a.verifyCreation(userID, item)
}

// verifyCreation reads both representations back and only reports success
// when they agree on the new item's existence.
func (a *Adapter) verifyCreation(userID string, item *types.TrackableItem) Result {
	row, err := a.store.GetItemByTitle(userID, item.Title)
	if err != nil || row == nil {
		logging.Plan("verifyCreation: row read-back missing for %s", item.ID)
		return uncertain(item.ID)
	}
	doc, err := a.store.LoadPlan(userID)
	if err != nil {
		return uncertain(item.ID)
	}
	if pi, _ := doc.FindItem(item.ID); pi < 0 {
		logging.Plan("verifyCreation: document entry missing for %s", item.ID)
		return uncertain(item.ID)
	}
	logging.Plan("CreateItem: verified %q (%s)", item.Title, item.ID)
	return success(item.ID, fmt.Sprintf("C'est noté, « %s » est dans ton plan.", item.Title))
}

func (a *Adapter) titleExistsInPhase(userID, title string, phase int) bool {
	items, err := a.store.ListItemsInPhase(userID, phase)
	if err != nil {
		return false
	}
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.Title), title) {
			return true
		}
	}
	return false
}

// ============================================================================
// UPDATE
// ============================================================================

// CheckFrequencyReduction rejects a weekly-target reduction that would
// leave more scheduled days than the new target. The caller is expected to
// ask which day to drop rather than truncating the schedule itself.
func CheckFrequencyReduction(item *types.TrackableItem, newTarget int) *Result {
	if newTarget <= 0 || newTarget >= item.TargetReps {
		return nil
	}
	if len(item.Schedule.Days) <= newTarget {
		return nil
	}
	r := blocked("frequency_reduction", fmt.Sprintf(
		"Passer à %d×/semaine laisse %d jours programmés. Quel jour veux-tu retirer ?",
		newTarget, len(item.Schedule.Days)))
	r.ItemID = item.ID
	r.Missing = append([]string(nil), item.Schedule.Days...)
	return &r
}

// ApplyUpdate writes modified fields of an existing item to the rows and
// rewrites the whole document projection (optimistic, last-writer-wins).
// The frequency-reduction guard must already have been cleared.
func (a *Adapter) ApplyUpdate(userID string, item *types.TrackableItem) Result {
	if err := a.store.UpdateItem(item); err != nil {
		logging.Plan("ApplyUpdate: row update failed: %v", err)
		return failed(retryMsg)
	}

	doc, err := a.store.LoadPlan(userID)
	if err != nil {
		return uncertain(item.ID)
	}
	pi, ii := doc.FindItem(item.ID)
	if pi < 0 {
		// Row exists but the projection lost it. Re-project instead of
		// failing the update.
		phase := item.Phase
		if phase < 0 || phase >= len(doc.Phases) {
			phase = 0
		}
		doc.Phases[phase].Items = append(doc.Phases[phase].Items, projectItem(item))
	} else {
		doc.Phases[pi].Items[ii] = projectItem(item)
	}
	if err := a.store.SavePlan(userID, doc); err != nil {
		logging.Plan("ApplyUpdate: document rewrite failed: %v", err)
		return uncertain(item.ID)
	}

	logging.Plan("ApplyUpdate: %q (%s) updated", item.Title, item.ID)
	return success(item.ID, fmt.Sprintf("C'est fait, « %s » est à jour.", item.Title))
}

// ============================================================================
// STATUS CHANGES
// ============================================================================

// SetStatus flips an item's lifecycle status in both representations.
func (a *Adapter) SetStatus(userID, itemID string, status types.ItemStatus) Result {
	item, err := a.store.GetItem(itemID)
	if err != nil {
		logging.Plan("SetStatus: item %s not found: %v", itemID, err)
		return failed(retryMsg)
	}

	if err := a.store.SetItemStatus(itemID, status); err != nil {
		return failed(retryMsg)
	}

	doc, err := a.store.LoadPlan(userID)
	if err != nil {
		return uncertain(itemID)
	}
	if pi, ii := doc.FindItem(itemID); pi >= 0 {
		doc.Phases[pi].Items[ii].Status = status
	}
	if err := a.store.SavePlan(userID, doc); err != nil {
		return uncertain(itemID)
	}

	var msg string
	switch status {
	case types.ItemActive:
		msg = fmt.Sprintf("« %s » est activée, on démarre.", item.Title)
	case types.ItemArchived:
		msg = fmt.Sprintf("« %s » est archivée. On pourra la reprendre plus tard.", item.Title)
	default:
		msg = fmt.Sprintf("« %s » est mise en attente.", item.Title)
	}
	return success(itemID, msg)
}

// MissingPrerequisites lists the titles of items in phases before the given
// item's phase that are not yet active. A non-empty list means activation
// must be blocked.
func (a *Adapter) MissingPrerequisites(userID string, item *types.TrackableItem) ([]string, error) {
	if item.Phase == 0 {
		return nil, nil
	}
	var missing []string
	for phase := 0; phase < item.Phase; phase++ {
		items, err := a.store.ListItemsInPhase(userID, phase)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.Status != types.ItemActive {
				missing = append(missing, it.Title)
			}
		}
	}
	return missing, nil
}

// FindItem resolves an id-or-title reference to a row.
func (a *Adapter) FindItem(userID, ref string) (*types.TrackableItem, error) {
	return a.store.FindItem(userID, ref)
}

// LoadPlan exposes the document for read paths.
func (a *Adapter) LoadPlan(userID string) (*types.PlanDocument, error) {
	return a.store.LoadPlan(userID)
}

func projectItem(item *types.TrackableItem) types.PlanItem {
	return types.PlanItem{
		ID:         item.ID,
		Kind:       item.Kind,
		Title:      item.Title,
		Status:     item.Status,
		TargetReps: item.TargetReps,
	}
}
