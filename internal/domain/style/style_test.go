package style

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenreModeCoversEveryMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseGenreMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
		assert.NotEmpty(t, m.Label())
	}

	got, err := ParseGenreMode("  History ")
	require.NoError(t, err)
	assert.Equal(t, History, got)

	_, err = ParseGenreMode("noir")
	assert.Error(t, err)
}

func TestAspectRatio(t *testing.T) {
	a, err := ParseAspectRatio("vertical")
	require.NoError(t, err)
	assert.True(t, a.IsVertical())
	w, h := a.Size()
	assert.Less(t, w, h)

	a, err = ParseAspectRatio("16:9")
	require.NoError(t, err)
	assert.False(t, a.IsVertical())

	_, err = ParseAspectRatio("4:3")
	assert.Error(t, err)
}

func TestLanguageGuide(t *testing.T) {
	assert.Equal(t, Japanese, ParseLanguage("ja"))
	assert.Equal(t, Language("Spanish"), ParseLanguage("Spanish"))

	guide, example := ParseLanguage("Spanish").Guide()
	assert.Contains(t, guide, "Spanish")
	assert.Empty(t, example)
}

func TestLoadPresetOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.yaml")
	require.NoError(t, os.WriteFile(path, []byte("genre: mannequin\naspect: \"9:16\"\ncharacter: a tall knight in silver armor\n"), 0644))

	d, err := LoadPreset(path, Defaults())
	require.NoError(t, err)

	assert.Equal(t, Mannequin, d.Genre)
	assert.Equal(t, Vertical, d.Aspect)
	assert.Equal(t, "a tall knight in silver armor", d.Character)
	assert.Equal(t, Korean, d.Language)
	assert.Equal(t, DefaultInstruction, d.Instruction)
}

func TestParsePresetRejectsUnknownGenre(t *testing.T) {
	base := Defaults()
	d, err := ParsePreset([]byte("genre: noir\n"), base)
	assert.Error(t, err)
	assert.Equal(t, base, d)
}
