package perception

import (
	"strings"
)

// IntentVerb is the canonical mutation verb detected in user text.
type IntentVerb string

const (
	VerbCreate     IntentVerb = "create"
	VerbActivate   IntentVerb = "activate"
	VerbDeactivate IntentVerb = "deactivate"
	VerbArchive    IntentVerb = "archive"
	VerbDelete     IntentVerb = "delete"
	VerbUpdate     IntentVerb = "update"
	VerbTrack      IntentVerb = "track"
	VerbBreakdown  IntentVerb = "breakdown"
)

// Intent is a fired explicit-intent detection: a mutation verb in the
// user's own words plus a non-empty target. This is deliberately stricter
// than consent classification: the model proposing a tool call is never
// enough on its own; the verb has to come from the user.
type Intent struct {
	Verb   IntentVerb
	Target string
	Fired  bool
}

// verbForms maps surface forms (normalized) to canonical verbs.
var verbForms = map[string]IntentVerb{
	// French
	"cree": VerbCreate, "creer": VerbCreate, "ajoute": VerbCreate,
	"ajouter": VerbCreate, "rajoute": VerbCreate,
	"active": VerbActivate, "activer": VerbActivate, "lance": VerbActivate,
	"demarre": VerbActivate, "demarrer": VerbActivate,
	"desactive": VerbDeactivate, "desactiver": VerbDeactivate,
	"archive": VerbArchive, "archiver": VerbArchive,
	"supprime": VerbDelete, "supprimer": VerbDelete, "enleve": VerbDelete,
	"retire": VerbDelete, "vire": VerbDelete,
	"modifie": VerbUpdate, "modifier": VerbUpdate, "change": VerbUpdate,
	"changer": VerbUpdate, "passe": VerbUpdate,
	"note": VerbTrack, "enregistre": VerbTrack, "coche": VerbTrack,
	"decoupe": VerbBreakdown, "decouper": VerbBreakdown, "simplifie": VerbBreakdown,

	// English
	"create": VerbCreate, "add": VerbCreate,
	"activate": VerbActivate, "start": VerbActivate, "enable": VerbActivate,
	"deactivate": VerbDeactivate, "disable": VerbDeactivate, "pause": VerbDeactivate,
	"delete": VerbDelete, "remove": VerbDelete,
	"update": VerbUpdate,
	"log":    VerbTrack, "record": VerbTrack,
}

// targetStopwords are dropped from the head of a target phrase.
var targetStopwords = map[string]bool{
	"le": true, "la": true, "les": true, "l": true, "un": true, "une": true,
	"mon": true, "ma": true, "mes": true, "de": true, "du": true, "des": true,
	"d": true, "moi": true, "stp": true, "svp": true, "the": true, "a": true,
	"an": true, "my": true, "please": true,
}

var cancelPhrases = []string{
	"annule", "annuler", "annulation", "cancel", "stop", "laisse tomber",
	"oublie", "oublie ca", "on arrete", "abandonne", "abandon",
	"nevermind", "never mind", "forget it", "tout compte fait non",
}

// DetectExplicitIntent fires only when the user's own words contain a
// mutation verb followed by a concrete target. Messages where the verb is
// hedged ("tu pourrais peut-etre creer...") still fire - the hedge applies
// to the assistant, not the consent; but a verb with no target never fires.
func DetectExplicitIntent(text string) Intent {
	n := Normalize(text)
	toks := words(n)

	for i, tok := range toks {
		verb, ok := verbForms[tok]
		if !ok {
			continue
		}
		target := extractTarget(toks[i+1:])
		if target == "" {
			continue
		}
		return Intent{Verb: verb, Target: target, Fired: true}
	}
	return Intent{}
}

// IsCancellation reports whether the message matches a cancel pattern.
func IsCancellation(text string) bool {
	n := Normalize(text)
	for _, p := range cancelPhrases {
		if containsPhrase(n, p) {
			return true
		}
	}
	return false
}

// extractTarget assembles the target phrase after a verb, skipping leading
// stopwords. Empty when nothing concrete remains.
func extractTarget(toks []string) string {
	start := 0
	for start < len(toks) && targetStopwords[toks[start]] {
		start++
	}
	if start >= len(toks) {
		return ""
	}
	// Cap the target at six tokens; longer tails are sentence continuation,
	// not a title.
	end := start + 6
	if end > len(toks) {
		end = len(toks)
	}
	return strings.Join(toks[start:end], " ")
}
