package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PuzzlePack is a YAML file of puzzle definitions shipped alongside the
// node configuration.
type PuzzlePack struct {
	Puzzles []PackedPuzzle `yaml:"puzzles"`
}

// PackedPuzzle is one puzzle of a pack. Name is informational.
type PackedPuzzle struct {
	ID           uint32 `yaml:"id"`
	Name         string `yaml:"name,omitempty"`
	SolutionHash string `yaml:"solution_hash"`
}

// LoadPuzzlePack reads and validates a puzzle pack.
func LoadPuzzlePack(path string) (*PuzzlePack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("puzzle pack: %w", err)
	}
	var pack PuzzlePack
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&pack); err != nil {
		return nil, fmt.Errorf("puzzle pack %s: %w", path, err)
	}
	seen := make(map[uint32]struct{}, len(pack.Puzzles))
	for i, p := range pack.Puzzles {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("puzzle pack %s: duplicate puzzle %d", path, p.ID)
		}
		seen[p.ID] = struct{}{}
		if _, err := ParseHash32(p.SolutionHash); err != nil {
			return nil, fmt.Errorf("puzzle pack %s: puzzles[%d]: %w", path, i, err)
		}
	}
	return &pack, nil
}

// mergePuzzlePack folds the configured pack into the inline puzzle table.
// A puzzle defined in both places is rejected.
func mergePuzzlePack(p *PuzzleGenesis, baseDir string) error {
	if strings.TrimSpace(p.Pack) == "" {
		return nil
	}
	path := p.Pack
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	pack, err := LoadPuzzlePack(path)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	inline := make(map[uint32]struct{}, len(p.Puzzles))
	for key := range p.Puzzles {
		id, err := ParsePuzzleID(key)
		if err != nil {
			return fmt.Errorf("genesis: puzzle.puzzles: %w", err)
		}
		inline[id] = struct{}{}
	}
	if p.Puzzles == nil {
		p.Puzzles = make(map[string]string, len(pack.Puzzles))
	}
	for _, puzzle := range pack.Puzzles {
		if _, dup := inline[puzzle.ID]; dup {
			return fmt.Errorf("genesis: puzzle %d defined inline and in pack %s", puzzle.ID, p.Pack)
		}
		p.Puzzles[strconv.FormatUint(uint64(puzzle.ID), 10)] = puzzle.SolutionHash
	}
	return nil
}
