// Package types defines the shared domain model for Sophia: trackable items,
// the phase-organized plan document, log entries, and the ephemeral per-user
// session state that is round-tripped on every conversation turn.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// TRACKABLE ITEMS
// =============================================================================

// ItemKind classifies what a trackable item is.
type ItemKind string

const (
	KindHabit     ItemKind = "habit"      // Recurring action, scheduled per week
	KindMission   ItemKind = "mission"    // One-off action
	KindFramework ItemKind = "framework"  // Reflective exercise
	KindVitalSign ItemKind = "vital_sign" // Metric the user reports (sleep, energy...)
)

// TrackingMode says how progress on an item is recorded.
type TrackingMode string

const (
	TrackingBoolean TrackingMode = "boolean" // done / not done
	TrackingCounter TrackingMode = "counter" // numeric value per log
)

// ItemStatus is the lifecycle state of a trackable item.
type ItemStatus string

const (
	ItemActive   ItemStatus = "active"
	ItemPending  ItemStatus = "pending"
	ItemArchived ItemStatus = "archived"
)

// TimeOfDay is the coarse scheduling slot for an item.
type TimeOfDay string

const (
	TimeMorning TimeOfDay = "morning"
	TimeNoon    TimeOfDay = "noon"
	TimeEvening TimeOfDay = "evening"
	TimeNight   TimeOfDay = "night"
)

// Schedule describes when a habit is expected to be performed.
// Days hold canonical lowercase English day names ("monday".."sunday").
type Schedule struct {
	Days      []string  `json:"days,omitempty"`
	TimeOfDay TimeOfDay `json:"time_of_day,omitempty"`
}

// HasDay reports whether the schedule contains the given day (case-insensitive).
func (s Schedule) HasDay(day string) bool {
	day = strings.ToLower(strings.TrimSpace(day))
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

// TrackableItem is the canonical (normalized-row) representation of one
// habit, mission, framework or vital sign. The plan document holds only a
// projected snapshot of it; rows are authoritative.
type TrackableItem struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	Kind            ItemKind     `json:"kind"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	TrackingMode    TrackingMode `json:"tracking_mode"`
	TargetReps      int          `json:"target_reps"` // per week; 0 for one-offs
	Schedule        Schedule     `json:"schedule"`
	Status          ItemStatus   `json:"status"`
	Phase           int          `json:"phase"` // index into PlanDocument.Phases
	LastPerformedAt *time.Time   `json:"last_performed_at,omitempty"`

	// Aggregate counters, maintained alongside log inserts.
	CompletedCount int `json:"completed_count"`
	MissedCount    int `json:"missed_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// =============================================================================
// PLAN DOCUMENT
// =============================================================================

// PhaseStatus is the lifecycle state of one plan phase.
type PhaseStatus string

const (
	PhaseLocked    PhaseStatus = "locked"
	PhaseActive    PhaseStatus = "active"
	PhaseCompleted PhaseStatus = "completed"
)

// PlanItem is the read-optimized projection of a TrackableItem embedded in
// the plan document. Never mutated directly; rewritten from rows.
type PlanItem struct {
	ID         string     `json:"id"`
	Kind       ItemKind   `json:"kind"`
	Title      string     `json:"title"`
	Status     ItemStatus `json:"status"`
	TargetReps int        `json:"target_reps,omitempty"`
}

// PlanPhase is one ordered phase of the user's plan.
type PlanPhase struct {
	Name   string      `json:"name"`
	Status PhaseStatus `json:"status"`
	Items  []PlanItem  `json:"items"`
}

// PlanDocument is the phase-organized document representation of a plan.
// Mutated only through the plan adapter, full-document rewrite each time.
type PlanDocument struct {
	Phases    []PlanPhase `json:"phases"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ActivePhase returns the index of the first active phase, or -1.
func (d *PlanDocument) ActivePhase() int {
	for i, p := range d.Phases {
		if p.Status == PhaseActive {
			return i
		}
	}
	return -1
}

// FindItem locates an item projection by id, returning phase index and
// position, or (-1, -1).
func (d *PlanDocument) FindItem(id string) (int, int) {
	for pi, p := range d.Phases {
		for ii, it := range p.Items {
			if it.ID == id {
				return pi, ii
			}
		}
	}
	return -1, -1
}

// =============================================================================
// LOG ENTRIES
// =============================================================================

// LogStatus is the outcome recorded for one item on one occasion.
type LogStatus string

const (
	LogCompleted LogStatus = "completed"
	LogMissed    LogStatus = "missed"
	LogPartial   LogStatus = "partial"
)

// MissReason buckets why an item was missed, used for the checkup opening.
type MissReason string

const (
	ReasonFatigue       MissReason = "fatigue"
	ReasonTime          MissReason = "time"
	ReasonForgetfulness MissReason = "forgetfulness"
	ReasonOther         MissReason = "other"
)

// LogEntry is an immutable, append-only progress record.
type LogEntry struct {
	ID          string     `json:"id"`
	ItemID      string     `json:"item_id"`
	Status      LogStatus  `json:"status"`
	Value       *int       `json:"value,omitempty"` // counter items only
	Note        string     `json:"note,omitempty"`
	Reason      MissReason `json:"reason,omitempty"` // missed entries only
	PerformedAt time.Time  `json:"performed_at"`
}

// =============================================================================
// OUTCOMES
// =============================================================================

// Outcome is the normalized result of one dispatched tool call and, by
// extension, of a whole conversation turn.
type Outcome string

const (
	OutcomeNone      Outcome = "none"      // No mutation attempted
	OutcomeSuccess   Outcome = "success"   // Both representations verified
	OutcomeFailed    Outcome = "failed"    // Honest technical failure
	OutcomeUncertain Outcome = "uncertain" // Dual-write disagreement on read-back
	OutcomeBlocked   Outcome = "blocked"   // Structural rule violated
)

// =============================================================================
// CANDIDATE STATE
// =============================================================================

// CandidateKind distinguishes the three confirmation flows.
type CandidateKind string

const (
	CandidateAction    CandidateKind = "action"         // create a new item
	CandidateUpdate    CandidateKind = "update_action"  // modify an existing item
	CandidateBreakdown CandidateKind = "breakdown"      // split a stuck item into a micro-step
)

// CandidateStatus is the lifecycle state of a candidate.
// Create flow: exploring -> awaiting_confirm -> previewing -> created | abandoned.
// Update flow: previewing -> applied | abandoned.
// Breakdown flow: awaiting_target -> awaiting_blocker -> generating ->
// previewing -> applied | abandoned.
type CandidateStatus string

const (
	CandExploring       CandidateStatus = "exploring"
	CandAwaitingConfirm CandidateStatus = "awaiting_confirm"
	CandAwaitingTarget  CandidateStatus = "awaiting_target"
	CandAwaitingBlocker CandidateStatus = "awaiting_blocker"
	CandGenerating      CandidateStatus = "generating"
	CandPreviewing      CandidateStatus = "previewing"
	CandCreated         CandidateStatus = "created"
	CandApplied         CandidateStatus = "applied"
	CandAbandoned       CandidateStatus = "abandoned"
)

// Terminal reports whether the candidate can no longer advance.
func (s CandidateStatus) Terminal() bool {
	return s == CandCreated || s == CandApplied || s == CandAbandoned
}

// ItemDraft holds the proposed parameters of a candidate before commit.
// Zero-valued fields mean "unchanged" in update flows.
type ItemDraft struct {
	Kind         ItemKind     `json:"kind,omitempty"`
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	TrackingMode TrackingMode `json:"tracking_mode,omitempty"`
	TargetReps   int          `json:"target_reps,omitempty"`
	Schedule     Schedule     `json:"schedule"`
	Status       ItemStatus   `json:"status,omitempty"`
}

// FieldChange is one proposed modification shown in an update preview.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Candidate is an ephemeral proposal awaiting user confirmation. It lives
// inside SessionState and is cleared on commit or abandonment.
type Candidate struct {
	ID     string          `json:"id"`
	Kind   CandidateKind   `json:"kind"`
	Status CandidateStatus `json:"status"`

	// ClarificationCount never exceeds 1; past that the flow abandons.
	ClarificationCount int `json:"clarification_count"`

	TargetID    string `json:"target_id,omitempty"`
	TargetTitle string `json:"target_title,omitempty"`

	Proposed ItemDraft     `json:"proposed"`
	Changes  []FieldChange `json:"changes,omitempty"`

	// PendingQuestion names the deterministic answer the flow is waiting
	// for ("drop_day": which scheduled day to remove).
	PendingQuestion string `json:"pending_question,omitempty"`

	Blocker string `json:"blocker,omitempty"` // breakdown flow

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// =============================================================================
// CHECKUP SESSION
// =============================================================================

// CheckupStatus is the state of the multi-item checkup interview.
type CheckupStatus string

const (
	CheckupInit     CheckupStatus = "init"
	CheckupChecking CheckupStatus = "checking"
	CheckupClosing  CheckupStatus = "closing"
)

// CheckupSession walks stale items one at a time. The queue may grow when
// the closing re-scan finds newly-stale items.
type CheckupSession struct {
	Status       CheckupStatus     `json:"status"`
	Pending      []string          `json:"pending"` // item IDs, ordered
	CurrentIndex int               `json:"current_index"`
	TempMemory   map[string]string `json:"temp_memory,omitempty"`

	// AwaitingReason is set after a missed log while we ask why.
	AwaitingReason string `json:"awaiting_reason,omitempty"` // item ID

	StartedAt time.Time `json:"started_at"`
}

// CurrentItem returns the item ID being checked, or "".
func (c *CheckupSession) CurrentItem() string {
	if c.CurrentIndex < 0 || c.CurrentIndex >= len(c.Pending) {
		return ""
	}
	return c.Pending[c.CurrentIndex]
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionState is the serialized per-user memory round-tripped every turn.
// Read-modify-write, last-writer-wins; the orchestrator itself is stateless.
type SessionState struct {
	UserID    string          `json:"user_id"`
	Candidate *Candidate      `json:"candidate,omitempty"`
	Checkup   *CheckupSession `json:"checkup,omitempty"`

	// LastOpeningDate (YYYY-MM-DD) tracks the once-per-day personalized
	// checkup opening message.
	LastOpeningDate string `json:"last_opening_date,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn of conversation history passed to the completion
// service.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
