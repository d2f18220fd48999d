package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFile(t *testing.T, dir string, name string, lines string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(lines), 0o644)
	require.NoError(t, err)
}

func TestParseLine(t *testing.T) {
	t.Run("Parse well-formed line", func(t *testing.T) {
		id, content, err := ParseLine("Balakanda::1::5::तपस्स्वाध्यायनिरतं तपस्वी वाग्विदां वरम्")
		assert.NoError(t, err)
		assert.Equal(t, "balakanda.1.5", id)
		assert.Equal(t, "तपस्स्वाध्यायनिरतं तपस्वी वाग्विदां वरम्", content)
	})

	t.Run("Content may contain separators", func(t *testing.T) {
		id, content, err := ParseLine("Balakanda::1::5::first part::second part")
		assert.NoError(t, err)
		assert.Equal(t, "balakanda.1.5", id)
		assert.Equal(t, "first part::second part", content)
	})

	t.Run("Missing fields fail", func(t *testing.T) {
		_, _, err := ParseLine("Balakanda::1::5")
		assert.Error(t, err)
	})

	t.Run("Empty coordinate fails", func(t *testing.T) {
		_, _, err := ParseLine("Balakanda::::5::text")
		assert.Error(t, err)
	})
}

func TestLoadKanda(t *testing.T) {
	root := t.TempDir()
	kandaDir := filepath.Join(root, "Balakanda")
	require.NoError(t, os.Mkdir(kandaDir, 0o755))

	writeCorpusFile(t, kandaDir, "Balakanda_sarga_1_sloka.txt",
		"Balakanda::1::1::तपस्स्वाध्यायनिरतम्\nBalakanda::1::2::नारदं परिपप्रच्छ\n")
	writeCorpusFile(t, kandaDir, "Balakanda_sarga_1_translation.txt",
		"Balakanda::1::1::The ascetic Valmiki asked Narada\n")
	writeCorpusFile(t, kandaDir, "Balakanda_sarga_1_meaning.txt",
		"Balakanda::1::1::Valmiki, devoted to austerity and study\n")

	loader := NewLoader(root)

	t.Run("Layers merge into one unit per sloka", func(t *testing.T) {
		units, err := loader.LoadKanda("Balakanda")
		assert.NoError(t, err)
		require.Len(t, units, 2)

		assert.Equal(t, "balakanda.1.1", units[0].ID)
		assert.Equal(t, "तपस्स्वाध्यायनिरतम्", units[0].Sanskrit)
		assert.Equal(t, "The ascetic Valmiki asked Narada", units[0].Translation)
		assert.Equal(t, "Valmiki, devoted to austerity and study", units[0].Meaning)

		assert.Equal(t, "balakanda.1.2", units[1].ID)
		assert.Equal(t, "", units[1].Translation, "missing layers stay empty")
	})

	t.Run("Unknown file suffixes are skipped", func(t *testing.T) {
		writeCorpusFile(t, kandaDir, "notes.txt", "not a corpus line")
		units, err := loader.LoadKanda("Balakanda")
		assert.NoError(t, err)
		assert.Len(t, units, 2)
	})

	t.Run("Malformed corpus line fails with location", func(t *testing.T) {
		writeCorpusFile(t, kandaDir, "Balakanda_sarga_2_sloka.txt", "broken line\n")
		_, err := loader.LoadKanda("Balakanda")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Balakanda_sarga_2_sloka.txt")
	})
}

func TestLoadAll(t *testing.T) {
	root := t.TempDir()
	for _, kanda := range []string{"Balakanda", "Ayodhyakanda"} {
		dir := filepath.Join(root, kanda)
		require.NoError(t, os.Mkdir(dir, 0o755))
		writeCorpusFile(t, dir, kanda+"_sarga_1_sloka.txt", kanda+"::1::1::text\n")
	}

	loader := NewLoader(root)

	t.Run("All kandas load ordered by unit ID", func(t *testing.T) {
		units, err := loader.LoadAll()
		assert.NoError(t, err)
		require.Len(t, units, 2)
		assert.Equal(t, "ayodhyakanda.1.1", units[0].ID)
		assert.Equal(t, "balakanda.1.1", units[1].ID)
	})

	t.Run("Missing root fails", func(t *testing.T) {
		missing := NewLoader(filepath.Join(root, "nope"))
		_, err := missing.LoadAll()
		assert.Error(t, err)
	})
}
