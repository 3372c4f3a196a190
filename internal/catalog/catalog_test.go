package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidhall/bidhall/internal/models"
)

func TestStaticLookups(t *testing.T) {
	s := NewStatic(
		[]models.Team{{ID: "t1", Name: "Reds", Budget: 1000}},
		[]models.Player{{ID: "p1", Name: "One", Available: true}},
	)

	team, ok := s.Team("t1")
	require.True(t, ok)
	assert.Equal(t, "Reds", team.Name)

	_, ok = s.Team("missing")
	assert.False(t, ok)

	player, ok := s.Player("p1")
	require.True(t, ok)
	assert.True(t, player.Available)

	assert.Len(t, s.Teams(), 1)
	assert.Len(t, s.Players(), 1)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "teams.json"), `[{"id":"t1","name":"Reds","budget":500}]`)
	writeFile(t, filepath.Join(dir, "players.json"), `[{"id":"p1","name":"One","category":"A","available":true}]`)

	s, err := Load(dir)
	require.NoError(t, err)

	team, ok := s.Team("t1")
	require.True(t, ok)
	assert.Equal(t, 500, team.Budget)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "teams.json"), `{not json`)
	writeFile(t, filepath.Join(dir, "players.json"), `[]`)

	_, err := Load(dir)
	assert.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
