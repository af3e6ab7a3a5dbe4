package perception

import (
	"regexp"
	"strconv"
	"strings"
)

// ConsentClass is the outcome of classifying a reply to a preview.
type ConsentClass string

const (
	ConsentAffirmative ConsentClass = "affirmative"
	ConsentNegative    ConsentClass = "negative"
	ConsentModify      ConsentClass = "modify" // carries an extractable value
	ConsentUnclear     ConsentClass = "unclear"
)

// ModValue is the structured value extracted from a modify-with-value reply.
type ModValue struct {
	Frequency *int     `json:"frequency,omitempty"` // weekly reps, 1-7
	Days      []string `json:"days,omitempty"`      // canonical english day names
	TimeOfDay string   `json:"time_of_day,omitempty"`
}

// Empty reports whether nothing was extracted.
func (v ModValue) Empty() bool {
	return v.Frequency == nil && len(v.Days) == 0 && v.TimeOfDay == ""
}

// ConsentResult is the classification plus any extracted value.
type ConsentResult struct {
	Class ConsentClass
	Value ModValue
}

var (
	// Elongated agreement: "ouiii", "yesss", "okkk".
	elongatedYes = regexp.MustCompile(`^(ou+a*i+s*|ye+s+|ye+p+|o+k+)\s*[!.]*$`)

	affirmativeTokens = []string{
		"oui", "ouais", "ouaip", "yes", "yep", "yeah", "ok", "okay", "dac",
		"dacc", "carrement", "parfait", "nickel", "volontiers", "go",
		"valide", "confirme", "allons-y", "allez",
	}
	affirmativePhrases = []string{
		"d accord", "d'accord", "ca marche", "c est bon", "c'est bon",
		"vas y", "vas-y", "pourquoi pas", "je veux bien", "ca me va",
		"on y va", "bonne idee", "let s go", "let's go",
	}

	negativeTokens = []string{
		"non", "no", "nope", "nan", "jamais", "stop", "annule", "cancel",
		"abandonne", "arrete",
	}
	negativePhrases = []string{
		"pas maintenant", "plus tard", "laisse tomber", "non merci",
		"pas envie", "pas aujourd hui", "pas aujourd'hui", "une autre fois",
		"on verra", "not now", "maybe later", "pas la peine", "sans facon",
	}

	frequencyDigit = regexp.MustCompile(`\b([1-7])\s*(?:x|×|fois)\b`)
	bareDigit      = regexp.MustCompile(`^\s*([1-7])\s*$`)

	frequencyWords = map[string]int{
		"une": 1, "un": 1, "deux": 2, "trois": 3, "quatre": 4,
		"cinq": 5, "six": 6, "sept": 7,
		"once": 1, "twice": 2, "one": 1, "two": 2, "three": 3,
		"four": 4, "five": 5, "seven": 7,
	}
	frequencyWordPattern = regexp.MustCompile(`\b(une|un|deux|trois|quatre|cinq|six|sept|once|twice|one|two|three|four|five|six|seven)\s+(?:fois|times)\b`)

	dayNames = map[string]string{
		"lundi": "monday", "mardi": "tuesday", "mercredi": "wednesday",
		"jeudi": "thursday", "vendredi": "friday", "samedi": "saturday",
		"dimanche": "sunday",
		"monday": "monday", "tuesday": "tuesday", "wednesday": "wednesday",
		"thursday": "thursday", "friday": "friday", "saturday": "saturday",
		"sunday": "sunday",
	}

	timeOfDayNames = map[string]string{
		"matin": "morning", "matinee": "morning", "morning": "morning",
		"midi": "noon", "noon": "noon",
		"soir": "evening", "soiree": "evening", "evening": "evening",
		"nuit": "night", "night": "night",
	}
)

// ClassifyConsent classifies a free-text reply to a candidate preview. The
// input does not need to be normalized. Precedence: negative/cancel first
// (a reluctant "non mais 3 fois" must not mutate), then modify-with-value,
// then affirmative, else unclear.
func ClassifyConsent(text string) ConsentResult {
	n := Normalize(text)
	if n == "" {
		return ConsentResult{Class: ConsentUnclear}
	}

	if isNegative(n) {
		return ConsentResult{Class: ConsentNegative}
	}

	if v := ExtractValue(n); !v.Empty() {
		return ConsentResult{Class: ConsentModify, Value: v}
	}

	if isAffirmative(n) {
		return ConsentResult{Class: ConsentAffirmative}
	}

	return ConsentResult{Class: ConsentUnclear}
}

func isAffirmative(n string) bool {
	toks := words(n)
	if len(toks) == 1 && elongatedYes.MatchString(toks[0]) {
		return true
	}
	for _, t := range affirmativeTokens {
		if containsPhrase(n, t) {
			return true
		}
	}
	for _, p := range affirmativePhrases {
		if containsPhrase(n, p) {
			return true
		}
	}
	return false
}

func isNegative(n string) bool {
	for _, t := range negativeTokens {
		if containsPhrase(n, t) {
			return true
		}
	}
	for _, p := range negativePhrases {
		if containsPhrase(n, p) {
			return true
		}
	}
	return false
}

// ExtractValue pulls a structured value out of already-normalized text:
// a weekly frequency (1-7), one or more day names, a time-of-day slot.
func ExtractValue(n string) ModValue {
	var v ModValue

	if m := frequencyDigit.FindStringSubmatch(n); m != nil {
		f, _ := strconv.Atoi(m[1])
		v.Frequency = &f
	} else if m := frequencyWordPattern.FindStringSubmatch(n); m != nil {
		if f, ok := frequencyWords[m[1]]; ok {
			v.Frequency = &f
		}
	} else if m := bareDigit.FindStringSubmatch(n); m != nil {
		// A lone digit is only meaningful as a frequency answer; the flow
		// asking the question decides whether to use it.
		f, _ := strconv.Atoi(m[1])
		v.Frequency = &f
	}

	for _, tok := range words(n) {
		if day, ok := dayNames[tok]; ok && !containsDay(v.Days, day) {
			v.Days = append(v.Days, day)
		}
	}

	for _, tok := range words(n) {
		if slot, ok := timeOfDayNames[tok]; ok {
			v.TimeOfDay = slot
			break
		}
	}

	return v
}

// ExtractDay returns the single day named in the text, or "" when zero or
// several days are mentioned. Used to resolve "which day do I drop?".
func ExtractDay(text string) string {
	v := ExtractValue(Normalize(text))
	if len(v.Days) != 1 {
		return ""
	}
	return v.Days[0]
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// DayFR maps a canonical english day name back to its French label for
// user-facing copy.
func DayFR(day string) string {
	fr := map[string]string{
		"monday": "lundi", "tuesday": "mardi", "wednesday": "mercredi",
		"thursday": "jeudi", "friday": "vendredi", "saturday": "samedi",
		"sunday": "dimanche",
	}
	if f, ok := fr[strings.ToLower(day)]; ok {
		return f
	}
	return day
}
