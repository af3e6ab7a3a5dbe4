package candidate

import (
	"fmt"
	"strings"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/perception"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// RenderPreview formats the confirmation prompt shown before any commit.
// All copy is French; the closing question always invites a plain oui/non.
func RenderPreview(cand *types.Candidate) string {
	var b strings.Builder

	switch cand.Kind {
	case types.CandidateUpdate:
		b.WriteString(fmt.Sprintf("Voilà ce que je te propose pour « %s » :\n", cand.TargetTitle))
		for _, ch := range cand.Changes {
			b.WriteString(fmt.Sprintf("- %s : %s → %s\n", changeLabel(ch.Field), ch.Old, ch.New))
		}
	case types.CandidateBreakdown:
		b.WriteString(fmt.Sprintf("Pour débloquer « %s », je te propose un micro-pas de 2 minutes :\n", cand.TargetTitle))
		b.WriteString(fmt.Sprintf("- %s\n", cand.Proposed.Title))
		if cand.Proposed.Description != "" {
			b.WriteString(fmt.Sprintf("  %s\n", cand.Proposed.Description))
		}
	default:
		b.WriteString("Voilà ce que je te propose d'ajouter :\n")
		b.WriteString(fmt.Sprintf("- %s\n", cand.Proposed.Title))
		if cand.Proposed.TargetReps > 0 {
			b.WriteString(fmt.Sprintf("- Fréquence : %d×/semaine\n", cand.Proposed.TargetReps))
		}
		if len(cand.Proposed.Schedule.Days) > 0 {
			b.WriteString(fmt.Sprintf("- Jours : %s\n", frenchDays(cand.Proposed.Schedule.Days)))
		}
		if cand.Proposed.Schedule.TimeOfDay != "" {
			b.WriteString(fmt.Sprintf("- Moment : %s\n", frenchTimeOfDay(cand.Proposed.Schedule.TimeOfDay)))
		}
	}

	b.WriteString("\nÇa te va ?")
	return b.String()
}

func changeLabel(field string) string {
	switch field {
	case "frequency":
		return "Fréquence"
	case "days":
		return "Jours"
	case "time_of_day":
		return "Moment"
	case "title":
		return "Nom"
	case "description":
		return "Description"
	case "status":
		return "Statut"
	default:
		return field
	}
}

func frenchDays(days []string) string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = perception.DayFR(d)
	}
	return strings.Join(out, ", ")
}

func frenchTimeOfDay(t types.TimeOfDay) string {
	switch t {
	case types.TimeMorning:
		return "le matin"
	case types.TimeNoon:
		return "le midi"
	case types.TimeEvening:
		return "le soir"
	case types.TimeNight:
		return "la nuit"
	case "":
		return "non défini"
	}
	return string(t)
}

// diffChanges lists the concrete differences a proposed draft would apply
// to an item. Zero-valued draft fields mean "unchanged".
func diffChanges(item *types.TrackableItem, proposed types.ItemDraft) []types.FieldChange {
	var changes []types.FieldChange

	if proposed.TargetReps > 0 && proposed.TargetReps != item.TargetReps {
		changes = append(changes, types.FieldChange{
			Field: "frequency",
			Old:   fmt.Sprintf("%d×/semaine", item.TargetReps),
			New:   fmt.Sprintf("%d×/semaine", proposed.TargetReps),
		})
	}
	if len(proposed.Schedule.Days) > 0 && !sameDays(item.Schedule.Days, proposed.Schedule.Days) {
		changes = append(changes, types.FieldChange{
			Field: "days",
			Old:   frenchDays(item.Schedule.Days),
			New:   frenchDays(proposed.Schedule.Days),
		})
	}
	if proposed.Schedule.TimeOfDay != "" && proposed.Schedule.TimeOfDay != item.Schedule.TimeOfDay {
		changes = append(changes, types.FieldChange{
			Field: "time_of_day",
			Old:   frenchTimeOfDay(item.Schedule.TimeOfDay),
			New:   frenchTimeOfDay(proposed.Schedule.TimeOfDay),
		})
	}
	if t := strings.TrimSpace(proposed.Title); t != "" && !strings.EqualFold(t, item.Title) {
		changes = append(changes, types.FieldChange{Field: "title", Old: item.Title, New: t})
	}
	if d := strings.TrimSpace(proposed.Description); d != "" && d != item.Description {
		changes = append(changes, types.FieldChange{Field: "description", Old: item.Description, New: d})
	}
	if proposed.Status != "" && proposed.Status != item.Status {
		changes = append(changes, types.FieldChange{
			Field: "status",
			Old:   frenchStatus(item.Status),
			New:   frenchStatus(proposed.Status),
		})
	}
	return changes
}

func frenchStatus(s types.ItemStatus) string {
	switch s {
	case types.ItemActive:
		return "active"
	case types.ItemArchived:
		return "archivée"
	case types.ItemPending:
		return "en attente"
	}
	return string(s)
}

func sameDays(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, d := range a {
		set[strings.ToLower(d)] = true
	}
	for _, d := range b {
		if !set[strings.ToLower(d)] {
			return false
		}
	}
	return true
}
