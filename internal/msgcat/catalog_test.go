package msgcat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedRender(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	out, err := c.Render("duel.end.checkmate", map[string]any{"Winner": "A", "Loser": "B"})
	require.NoError(t, err)
	assert.Equal(t, "🏁 체크메이트! A님이 B님을 이겼습니다.", out)

	_, err = c.Render("duel.end.checkmate", map[string]any{"Winner": "A"})
	assert.Error(t, err)

	_, err = c.Render("duel.nope", nil)
	assert.Error(t, err)
	assert.Equal(t, "fallback", c.Text("duel.nope", nil, "fallback"))
	assert.True(t, c.Has("duel.help"))
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("duel:\n  draw:\n    already: custom\n"), 0o644))
	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "custom", c.Text("duel.draw.already", nil, ""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("duel:\n  draw:\n    already: other\n"), 0o644))
	_, err = New(dir)
	assert.ErrorContains(t, err, "duplicate override key")
}

func TestNonStringLeafRejected(t *testing.T) {
	_, err := parseYAMLToFlat([]byte("a:\n  b: 3\n"))
	assert.Error(t, err)
}
