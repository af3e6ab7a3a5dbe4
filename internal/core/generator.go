package core

import (
	"context"
	"fmt"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/dispatch"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// microStepGenerator asks the completion service for the breakdown
// micro-step. The tool choice is forced: the flow has already collected
// the target and the blocker, the model is only filling in arguments.
type microStepGenerator struct {
	llm types.LLMClient
}

func (g *microStepGenerator) GenerateMicroStep(ctx context.Context, targetTitle, blocker string) (types.ItemDraft, error) {
	if g.llm == nil {
		return types.ItemDraft{}, fmt.Errorf("no completion service configured")
	}

	prompt := fmt.Sprintf(`L'utilisateur n'arrive plus à tenir l'action « %s ».
Ce qui bloque : %s.
Propose UN micro-pas de deux minutes maximum qui rend un tout petit bout de
cette action trivial à faire. Le titre doit décrire un geste concret et
minuscule, pas une version réduite de l'action entière.`, targetTitle, blocker)

	resp, err := g.llm.CompleteWithTools(ctx, systemPrompt, nil, prompt,
		toolDefinitions(),
		types.ToolChoice{Mode: types.ToolChoiceForced, Tool: dispatch.ToolCreateAction})
	if err != nil {
		return types.ItemDraft{}, fmt.Errorf("micro-step generation failed: %w", err)
	}
	if len(resp.ToolCalls) == 0 {
		return types.ItemDraft{}, fmt.Errorf("micro-step generation returned no proposal")
	}

	parsed, err := dispatch.ParseArgs(resp.ToolCalls[0])
	if err != nil || parsed.Create == nil {
		return types.ItemDraft{}, fmt.Errorf("micro-step proposal unusable: %w", err)
	}

	draft := parsed.Create.Draft
	if draft.TargetReps == 0 {
		// Micro-steps default to a light daily-ish cadence.
		draft.TargetReps = 3
	}
	logging.Candidate("GenerateMicroStep: %q for %q", draft.Title, targetTitle)
	return draft, nil
}
