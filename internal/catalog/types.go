package catalog

import (
	"fmt"

	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// Topic is a catalog topic loaded from YAML.
type Topic struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title"`
	Order    int       `yaml:"order"`
	Problems []Problem `yaml:"problems"`
}

// Problem is one practice problem within a topic.
type Problem struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Difficulty string `yaml:"difficulty"`
	Completed  bool   `yaml:"completed"`
	Links      Links  `yaml:"links"`
}

// Links holds a problem's external references.
type Links struct {
	Code    string `yaml:"code"`
	Video   string `yaml:"video"`
	Article string `yaml:"article"`
}

// ToProgress converts t into a progress topic with its progress computed.
func (t Topic) ToProgress() (progress.Topic, error) {
	out := progress.Topic{
		ID:       t.ID,
		Title:    t.Title,
		Problems: make([]progress.Problem, 0, len(t.Problems)),
	}
	seen := make(map[string]bool, len(t.Problems))
	for _, p := range t.Problems {
		if p.ID == "" {
			return progress.Topic{}, fmt.Errorf("topic %s: problem %q has no id", t.ID, p.Name)
		}
		if seen[p.ID] {
			return progress.Topic{}, fmt.Errorf("topic %s: duplicate problem id %s", t.ID, p.ID)
		}
		seen[p.ID] = true

		d, err := progress.ParseDifficulty(p.Difficulty)
		if err != nil {
			return progress.Topic{}, fmt.Errorf("topic %s problem %s: %w", t.ID, p.ID, err)
		}
		out.Problems = append(out.Problems, progress.Problem{
			ID:         p.ID,
			Name:       p.Name,
			Difficulty: d,
			Completed:  p.Completed,
			Links:      progress.Links(p.Links),
		})
	}
	return progress.Recompute(out), nil
}
