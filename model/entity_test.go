package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabel(t *testing.T) {
	t.Run("Lowercases and collapses whitespace", func(t *testing.T) {
		assert.Equal(t, "rama", NormalizeLabel("  Rama  "))
		assert.Equal(t, "kumbha_karna", NormalizeLabel("Kumbha  Karna"))
	})

	t.Run("IAST long vowels fold to doubled letters", func(t *testing.T) {
		assert.Equal(t, "raama", NormalizeLabel("Rāma"))
		assert.Equal(t, "siitaa", NormalizeLabel("Sītā"))
	})

	t.Run("Other diacritics are dropped", func(t *testing.T) {
		assert.Equal(t, "laksmana", NormalizeLabel("Lakṣmaṇa"))
		assert.Equal(t, "krsna", NormalizeLabel("Kṛṣṇa"))
	})

	t.Run("IAST and simplified spellings of one name agree", func(t *testing.T) {
		assert.Equal(t, NormalizeLabel("Rāma"), NormalizeLabel("Raama"))
		assert.Equal(t, NormalizeLabel("Sītā"), NormalizeLabel("Siitaa"))
	})

	t.Run("Devanagari passes through untouched", func(t *testing.T) {
		assert.Equal(t, "रामः", NormalizeLabel("रामः"))
		assert.Equal(t, "लक्ष्मण", NormalizeLabel("लक्ष्मण"))
	})
}

func TestEntityLabel(t *testing.T) {
	entity := &Entity{
		Key:    EntityKey("rama"),
		Labels: Labels{"en": "Rama", "sa": "रामः"},
	}

	t.Run("Requested language wins", func(t *testing.T) {
		assert.Equal(t, "रामः", entity.Label("sa"))
	})

	t.Run("Falls back to English", func(t *testing.T) {
		assert.Equal(t, "Rama", entity.Label("fr"))
	})

	t.Run("Falls back to the key when no labels exist", func(t *testing.T) {
		bare := &Entity{Key: EntityKey("rama")}
		assert.Equal(t, EntityKey("rama"), bare.Label("en"))
	})
}
