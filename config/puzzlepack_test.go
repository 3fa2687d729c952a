package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const packHash = "0x0202020202020202020202020202020202020202020202020202020202020202"

func writePackConfig(t *testing.T, pack, inline string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "puzzles.yaml"), []byte(pack), 0o644))
	path := filepath.Join(dir, "config.toml")
	contents := `
[node]
query_address = ":8080"

[genesis]
admin = "` + testAddress(t, 0x01) + `"

[genesis.reward_token]
symbol = "QST"

[genesis.puzzle]
enabled = true
pack = "puzzles.yaml"
` + inline
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMergesPuzzlePack(t *testing.T) {
	path := writePackConfig(t, `
puzzles:
  - id: 4
    name: warmup
    solution_hash: "`+packHash+`"
  - id: 5
    solution_hash: "`+packHash+`"
`, `
[genesis.puzzle.puzzles]
"3" = "`+packHash+`"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Genesis.Puzzle.Puzzles, 3)
	require.Equal(t, packHash, cfg.Genesis.Puzzle.Puzzles["4"])
}

func TestPuzzlePackConflicts(t *testing.T) {
	dupInline := writePackConfig(t, "puzzles:\n  - id: 3\n    solution_hash: \""+packHash+"\"\n", `
[genesis.puzzle.puzzles]
"3" = "`+packHash+`"
`)
	_, err := Load(dupInline)
	require.ErrorContains(t, err, "defined inline and in pack")

	dupPack := writePackConfig(t, "puzzles:\n  - id: 1\n    solution_hash: \""+packHash+"\"\n  - id: 1\n    solution_hash: \""+packHash+"\"\n", "")
	_, err = Load(dupPack)
	require.ErrorContains(t, err, "duplicate puzzle 1")

	badHash := writePackConfig(t, "puzzles:\n  - id: 2\n    solution_hash: \"0x01\"\n", "")
	_, err = Load(badHash)
	require.ErrorContains(t, err, "32 bytes")

	unknown := writePackConfig(t, "puzzles:\n  - id: 2\n    answer: plain\n", "")
	_, err = Load(unknown)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "answer"))
}

func TestValidateArchive(t *testing.T) {
	cfg := Default()
	cfg.Archive.Enabled = true
	require.NoError(t, Validate(cfg))

	cfg.Archive.Driver = "mysql"
	require.ErrorContains(t, Validate(cfg), "driver")

	cfg.Archive.Driver = "postgres"
	cfg.Archive.DSN = " "
	require.ErrorContains(t, Validate(cfg), "dsn")
}
