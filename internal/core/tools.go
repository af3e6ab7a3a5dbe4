package core

import (
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/dispatch"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// toolDefinitions declares the mutation surface offered to the completion
// service. Declaring a tool never authorizes it: the dispatcher still
// requires explicit user intent before a structure mutation runs.
func toolDefinitions() []types.ToolDefinition {
	day := map[string]interface{}{
		"type": "string",
		"enum": []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
	}
	timeOfDay := map[string]interface{}{
		"type": "string",
		"enum": []string{"morning", "noon", "evening", "night"},
	}

	return []types.ToolDefinition{
		{
			Name:        dispatch.ToolTrackProgress,
			Description: "Enregistre la progression du jour sur une action du plan (faite, manquée ou partielle).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"item":   map[string]interface{}{"type": "string", "description": "Titre exact de l'action"},
					"status": map[string]interface{}{"type": "string", "enum": []string{"completed", "missed", "partial"}},
					"value":  map[string]interface{}{"type": "integer", "description": "Valeur pour les actions à compteur"},
					"note":   map[string]interface{}{"type": "string"},
					"reason": map[string]interface{}{"type": "string", "enum": []string{"fatigue", "time", "forgetfulness", "other"}},
				},
				"required": []string{"item", "status"},
			},
		},
		{
			Name:        dispatch.ToolCreateAction,
			Description: "Propose une nouvelle habitude ou mission dans le plan de l'utilisateur.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title":         map[string]interface{}{"type": "string"},
					"description":   map[string]interface{}{"type": "string"},
					"kind":          map[string]interface{}{"type": "string", "enum": []string{"habit", "mission", "vital_sign"}},
					"tracking_mode": map[string]interface{}{"type": "string", "enum": []string{"boolean", "counter"}},
					"target_reps":   map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 7},
					"days":          map[string]interface{}{"type": "array", "items": day},
					"time_of_day":   timeOfDay,
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        dispatch.ToolCreateFramework,
			Description: "Propose un exercice de réflexion récurrent (bilan, journal...).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title":       map[string]interface{}{"type": "string"},
					"description": map[string]interface{}{"type": "string"},
					"target_reps": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 7},
					"days":        map[string]interface{}{"type": "array", "items": day},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        dispatch.ToolUpdateAction,
			Description: "Propose une modification de structure d'une action existante (fréquence, jours, moment, titre).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"item":        map[string]interface{}{"type": "string", "description": "Titre exact de l'action à modifier"},
					"target_reps": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 7},
					"days":        map[string]interface{}{"type": "array", "items": day},
					"time_of_day": timeOfDay,
					"new_title":   map[string]interface{}{"type": "string"},
					"description": map[string]interface{}{"type": "string"},
				},
				"required": []string{"item"},
			},
		},
		{
			Name:        dispatch.ToolActivateAction,
			Description: "Active une action en attente du plan.",
			InputSchema: itemRefSchema(),
		},
		{
			Name:        dispatch.ToolArchiveAction,
			Description: "Archive une action du plan.",
			InputSchema: itemRefSchema(),
		},
		{
			Name:        dispatch.ToolBreakDownAction,
			Description: "Découpe une action qui bloque en un micro-pas de deux minutes.",
			InputSchema: itemRefSchema(),
		},
	}
}

func itemRefSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"item": map[string]interface{}{"type": "string", "description": "Titre exact de l'action"},
		},
		"required": []string{"item"},
	}
}
