package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectExplicitIntent(t *testing.T) {
	t.Run("french create with target", func(t *testing.T) {
		intent := DetectExplicitIntent("crée une habitude méditation")
		assert.True(t, intent.Fired)
		assert.Equal(t, VerbCreate, intent.Verb)
		assert.Equal(t, "habitude meditation", intent.Target)
	})

	t.Run("activate", func(t *testing.T) {
		intent := DetectExplicitIntent("active la course à pied")
		assert.True(t, intent.Fired)
		assert.Equal(t, VerbActivate, intent.Verb)
	})

	t.Run("delete", func(t *testing.T) {
		intent := DetectExplicitIntent("supprime l'habitude lecture")
		assert.True(t, intent.Fired)
		assert.Equal(t, VerbDelete, intent.Verb)
	})

	t.Run("verb without target does not fire", func(t *testing.T) {
		intent := DetectExplicitIntent("supprime")
		assert.False(t, intent.Fired)
	})

	t.Run("verb followed only by stopwords does not fire", func(t *testing.T) {
		intent := DetectExplicitIntent("ajoute le")
		assert.False(t, intent.Fired)
	})

	t.Run("no verb does not fire", func(t *testing.T) {
		intent := DetectExplicitIntent("je suis fatigué aujourd'hui")
		assert.False(t, intent.Fired)
	})

	t.Run("english verb", func(t *testing.T) {
		intent := DetectExplicitIntent("archive the reading habit")
		assert.True(t, intent.Fired)
		assert.Equal(t, VerbArchive, intent.Verb)
		assert.Equal(t, "reading habit", intent.Target)
	})

	t.Run("target capped at six tokens", func(t *testing.T) {
		intent := DetectExplicitIntent("crée une habitude un deux trois quatre cinq six sept huit")
		assert.True(t, intent.Fired)
		assert.Equal(t, "habitude un deux trois quatre cinq", intent.Target)
	})
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation("annule tout"))
	assert.True(t, IsCancellation("laisse tomber"))
	assert.True(t, IsCancellation("on arrête"))
	assert.True(t, IsCancellation("forget it"))
	assert.False(t, IsCancellation("oui continue"))
	assert.False(t, IsCancellation("3 fois par semaine"))
}
