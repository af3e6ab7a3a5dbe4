package dispatch

import (
	"fmt"
	"strings"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// Tool names the dispatcher knows how to execute.
const (
	ToolTrackProgress   = "track_progress"
	ToolCreateAction    = "create_simple_action"
	ToolCreateFramework = "create_framework"
	ToolUpdateAction    = "update_action_structure"
	ToolActivateAction  = "activate_plan_action"
	ToolArchiveAction   = "archive_plan_action"
	ToolBreakDownAction = "break_down_action"
)

// The completion service returns loosely-typed JSON arguments. Each tool
// gets its own narrow struct, validated here at the boundary; handlers
// never see a raw map.

// TrackProgressArgs logs one progress event for an item.
type TrackProgressArgs struct {
	ItemRef string
	Status  types.LogStatus
	Value   *int
	Note    string
	Reason  types.MissReason
}

// CreateActionArgs proposes a new habit or mission.
type CreateActionArgs struct {
	Draft types.ItemDraft
}

// UpdateActionArgs proposes structural changes to an existing item.
type UpdateActionArgs struct {
	ItemRef string
	Draft   types.ItemDraft
}

// ItemRefArgs covers activate/archive/breakdown, which only name a target.
type ItemRefArgs struct {
	ItemRef string
}

// ParsedArgs is the tagged union of every tool's arguments. Exactly one
// field is non-nil after a successful parse.
type ParsedArgs struct {
	Track    *TrackProgressArgs
	Create   *CreateActionArgs
	Update   *UpdateActionArgs
	Activate *ItemRefArgs
	Archive  *ItemRefArgs
	Break    *ItemRefArgs
}

// ParseArgs validates and narrows a raw tool call.
func ParseArgs(call types.ToolCall) (ParsedArgs, error) {
	switch call.Name {
	case ToolTrackProgress:
		a, err := parseTrackProgress(call.Args)
		return ParsedArgs{Track: a}, err
	case ToolCreateAction, ToolCreateFramework:
		a, err := parseCreateAction(call.Name, call.Args)
		return ParsedArgs{Create: a}, err
	case ToolUpdateAction:
		a, err := parseUpdateAction(call.Args)
		return ParsedArgs{Update: a}, err
	case ToolActivateAction:
		a, err := parseItemRef(call.Args)
		return ParsedArgs{Activate: a}, err
	case ToolArchiveAction:
		a, err := parseItemRef(call.Args)
		return ParsedArgs{Archive: a}, err
	case ToolBreakDownAction:
		a, err := parseItemRef(call.Args)
		return ParsedArgs{Break: a}, err
	default:
		return ParsedArgs{}, fmt.Errorf("unknown tool %q", call.Name)
	}
}

func parseTrackProgress(raw map[string]interface{}) (*TrackProgressArgs, error) {
	a := &TrackProgressArgs{
		ItemRef: getString(raw, "item", "item_ref", "item_id", "title"),
		Note:    getString(raw, "note"),
	}
	if a.ItemRef == "" {
		return nil, fmt.Errorf("track_progress: missing item reference")
	}

	switch s := getString(raw, "status"); s {
	case "completed", "done":
		a.Status = types.LogCompleted
	case "missed", "skipped":
		a.Status = types.LogMissed
	case "partial":
		a.Status = types.LogPartial
	default:
		return nil, fmt.Errorf("track_progress: invalid status %q", s)
	}

	if v, ok := getInt(raw, "value"); ok {
		a.Value = &v
	}
	switch r := getString(raw, "reason"); r {
	case "":
	case "fatigue", "time", "forgetfulness", "other":
		a.Reason = types.MissReason(r)
	default:
		a.Reason = types.ReasonOther
	}
	return a, nil
}

func parseCreateAction(tool string, raw map[string]interface{}) (*CreateActionArgs, error) {
	draft := types.ItemDraft{
		Title:       strings.TrimSpace(getString(raw, "title", "name")),
		Description: getString(raw, "description"),
	}
	if draft.Title == "" {
		return nil, fmt.Errorf("%s: missing title", tool)
	}

	if tool == ToolCreateFramework {
		draft.Kind = types.KindFramework
	} else {
		switch getString(raw, "kind") {
		case "mission":
			draft.Kind = types.KindMission
		case "vital_sign":
			draft.Kind = types.KindVitalSign
		default:
			draft.Kind = types.KindHabit
		}
	}

	if getString(raw, "tracking_mode") == "counter" {
		draft.TrackingMode = types.TrackingCounter
	} else {
		draft.TrackingMode = types.TrackingBoolean
	}

	if f, ok := getInt(raw, "target_reps", "frequency"); ok {
		if f < 0 || f > 7 {
			return nil, fmt.Errorf("%s: target_reps %d out of range", tool, f)
		}
		draft.TargetReps = f
	}
	draft.Schedule.Days = getDays(raw)
	draft.Schedule.TimeOfDay = getTimeOfDay(raw)
	return &CreateActionArgs{Draft: draft}, nil
}

func parseUpdateAction(raw map[string]interface{}) (*UpdateActionArgs, error) {
	a := &UpdateActionArgs{
		ItemRef: getString(raw, "item", "item_ref", "item_id", "title"),
	}
	if a.ItemRef == "" {
		return nil, fmt.Errorf("update_action_structure: missing item reference")
	}

	if f, ok := getInt(raw, "target_reps", "frequency"); ok {
		if f < 1 || f > 7 {
			return nil, fmt.Errorf("update_action_structure: target_reps %d out of range", f)
		}
		a.Draft.TargetReps = f
	}
	a.Draft.Schedule.Days = getDays(raw)
	a.Draft.Schedule.TimeOfDay = getTimeOfDay(raw)
	a.Draft.Title = strings.TrimSpace(getString(raw, "new_title"))
	a.Draft.Description = getString(raw, "description")

	if a.Draft.TargetReps == 0 && len(a.Draft.Schedule.Days) == 0 &&
		a.Draft.Schedule.TimeOfDay == "" && a.Draft.Title == "" && a.Draft.Description == "" {
		return nil, fmt.Errorf("update_action_structure: no change requested")
	}
	return a, nil
}

func parseItemRef(raw map[string]interface{}) (*ItemRefArgs, error) {
	ref := getString(raw, "item", "item_ref", "item_id", "title")
	if ref == "" {
		return nil, fmt.Errorf("missing item reference")
	}
	return &ItemRefArgs{ItemRef: ref}, nil
}

// ============================================================================
// RAW MAP NARROWING
// ============================================================================

func getString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// getInt accepts JSON numbers (float64) and strings of digits.
func getInt(raw map[string]interface{}, keys ...string) (int, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n), true
		case int:
			return n, true
		case string:
			var i int
			if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &i); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

var validDays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func getDays(raw map[string]interface{}) []string {
	v, ok := raw["days"]
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var days []string
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if validDays[s] {
			days = append(days, s)
		}
	}
	return days
}

func getTimeOfDay(raw map[string]interface{}) types.TimeOfDay {
	switch getString(raw, "time_of_day") {
	case "morning":
		return types.TimeMorning
	case "noon":
		return types.TimeNoon
	case "evening":
		return types.TimeEvening
	case "night":
		return types.TimeNight
	}
	return ""
}
