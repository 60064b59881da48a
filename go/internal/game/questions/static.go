package questions

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mcdev12/quizroyale/go/internal/models"
	"gopkg.in/yaml.v3"
)

type bankFile struct {
	Default []models.Question            `yaml:"default"`
	Games   map[string][]models.Question `yaml:"games"`
}

// StaticProvider serves questions from a YAML bank. Games without their own
// list fall back to the default list.
type StaticProvider struct {
	fallback []models.Question
	games    map[string][]models.Question
}

func LoadStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}
	return ParseStaticProvider(data)
}

func ParseStaticProvider(data []byte) (*StaticProvider, error) {
	var bank bankFile
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	p := &StaticProvider{games: make(map[string][]models.Question, len(bank.Games))}
	var err error
	if p.fallback, err = validate(bank.Default); err != nil {
		return nil, fmt.Errorf("default questions: %w", err)
	}
	for code, qs := range bank.Games {
		valid, err := validate(qs)
		if err != nil {
			return nil, fmt.Errorf("game %s: %w", code, err)
		}
		p.games[strings.ToUpper(code)] = valid
	}
	return p, nil
}

func (p *StaticProvider) GameQuestions(_ context.Context, gameCode string) ([]models.Question, error) {
	qs, ok := p.games[strings.ToUpper(gameCode)]
	if !ok {
		qs = p.fallback
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("game %s: %w", gameCode, ErrNotFound)
	}
	out := make([]models.Question, len(qs))
	copy(out, qs)
	return out, nil
}
