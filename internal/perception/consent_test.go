package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyConsent_Affirmative(t *testing.T) {
	cases := []string{
		"oui",
		"Oui !",
		"ouiii",
		"ouaiiis",
		"yes",
		"yesss",
		"ok",
		"d'accord",
		"ça marche",
		"carrément",
		"vas-y",
		"je veux bien",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			res := ClassifyConsent(in)
			assert.Equal(t, ConsentAffirmative, res.Class)
		})
	}
}

func TestClassifyConsent_Negative(t *testing.T) {
	cases := []string{
		"non",
		"Non merci",
		"nope",
		"pas maintenant",
		"laisse tomber",
		"plus tard",
		"annule",
		"pas envie",
		"stop",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			res := ClassifyConsent(in)
			assert.Equal(t, ConsentNegative, res.Class)
		})
	}
}

func TestClassifyConsent_NegativeWinsOverValue(t *testing.T) {
	// A reluctant reply carrying a number must never be read as consent.
	res := ClassifyConsent("non, pas 3 fois")
	assert.Equal(t, ConsentNegative, res.Class)
}

func TestClassifyConsent_ModifyWithValue(t *testing.T) {
	t.Run("digit frequency", func(t *testing.T) {
		res := ClassifyConsent("plutôt 3 fois par semaine")
		require.Equal(t, ConsentModify, res.Class)
		require.NotNil(t, res.Value.Frequency)
		assert.Equal(t, 3, *res.Value.Frequency)
	})

	t.Run("word frequency", func(t *testing.T) {
		res := ClassifyConsent("deux fois ça suffit")
		require.Equal(t, ConsentModify, res.Class)
		require.NotNil(t, res.Value.Frequency)
		assert.Equal(t, 2, *res.Value.Frequency)
	})

	t.Run("bare digit", func(t *testing.T) {
		res := ClassifyConsent("5")
		require.Equal(t, ConsentModify, res.Class)
		require.NotNil(t, res.Value.Frequency)
		assert.Equal(t, 5, *res.Value.Frequency)
	})

	t.Run("frequency above seven ignored", func(t *testing.T) {
		res := ClassifyConsent("9 fois")
		assert.Nil(t, res.Value.Frequency)
	})

	t.Run("day names", func(t *testing.T) {
		res := ClassifyConsent("mets le plutôt lundi et jeudi")
		require.Equal(t, ConsentModify, res.Class)
		assert.Equal(t, []string{"monday", "thursday"}, res.Value.Days)
	})

	t.Run("time of day", func(t *testing.T) {
		res := ClassifyConsent("plutôt le soir")
		require.Equal(t, ConsentModify, res.Class)
		assert.Equal(t, "evening", res.Value.TimeOfDay)
	})

	t.Run("diacritics stripped before matching", func(t *testing.T) {
		res := ClassifyConsent("Mercredi plutôt")
		require.Equal(t, ConsentModify, res.Class)
		assert.Equal(t, []string{"wednesday"}, res.Value.Days)
	})
}

func TestClassifyConsent_Unclear(t *testing.T) {
	cases := []string{
		"",
		"hmm",
		"je sais pas trop",
		"tu crois ?",
		"peut-etre faut voir",
	}
	for _, in := range cases {
		t.Run("unclear:"+in, func(t *testing.T) {
			res := ClassifyConsent(in)
			assert.Equal(t, ConsentUnclear, res.Class)
		})
	}
}

func TestExtractDay(t *testing.T) {
	assert.Equal(t, "friday", ExtractDay("enlève le vendredi"))
	assert.Equal(t, "", ExtractDay("lundi ou mardi"), "ambiguous answer yields nothing")
	assert.Equal(t, "", ExtractDay("aucun"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "deja vu a noel", Normalize("  Déjà vu à Noël "))
	assert.Equal(t, "creer", Normalize("CRÉER"))
}

func TestContainsPhrase_WordBoundaries(t *testing.T) {
	assert.True(t, ContainsPhrase("oui bien sur", "oui"))
	assert.True(t, ContainsPhrase("ah oui", "oui"))
	assert.False(t, ContainsPhrase("ouija", "oui"))
	assert.False(t, ContainsPhrase("inouie", "oui"))

	// Ligatures survive normalization as multibyte letters; they must still
	// count as word characters on the boundary.
	assert.False(t, ContainsPhrase("œoui", "oui"))
	assert.False(t, ContainsPhrase("ouiœ", "oui"))
	assert.True(t, ContainsPhrase("vœu oui", "oui"))
}
