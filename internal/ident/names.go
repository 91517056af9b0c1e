package ident

import (
	"embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

//go:embed res/adjectives.json res/jellies.json
var wordLists embed.FS

// NameGenerator produces display names of the form "<Adjective> <Jelly> Jelly"
type NameGenerator struct {
	adjectives []string
	jellies    []string
	intN       func(n int) int
}

// NewNameGenerator loads the embedded word lists
func NewNameGenerator() (*NameGenerator, error) {
	adjectives, err := loadWords("res/adjectives.json")
	if err != nil {
		return nil, err
	}
	jellies, err := loadWords("res/jellies.json")
	if err != nil {
		return nil, err
	}
	return newNameGenerator(adjectives, jellies, rand.IntN)
}

// MustNameGenerator is like NewNameGenerator but panics on error. The word
// lists are compiled in, so failure is a build defect.
func MustNameGenerator() *NameGenerator {
	g, err := NewNameGenerator()
	if err != nil {
		panic(err)
	}
	return g
}

func newNameGenerator(adjectives, jellies []string, intN func(int) int) (*NameGenerator, error) {
	if len(adjectives) == 0 || len(jellies) == 0 {
		return nil, fmt.Errorf("name generator: word lists must not be empty")
	}
	return &NameGenerator{adjectives: adjectives, jellies: jellies, intN: intN}, nil
}

func loadWords(path string) ([]string, error) {
	raw, err := wordLists.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("name generator: read %s: %w", path, err)
	}
	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, fmt.Errorf("name generator: parse %s: %w", path, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("name generator: %s is empty", path)
	}
	return words, nil
}

// Generate returns a random display name
func (g *NameGenerator) Generate() string {
	return fmt.Sprintf("%s %s Jelly",
		g.adjectives[g.intN(len(g.adjectives))],
		g.jellies[g.intN(len(g.jellies))],
	)
}
