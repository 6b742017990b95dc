// Package progress holds the learner's topic/problem snapshot and keeps it in
// step with the remote authority through optimistic toggles.
package progress

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Difficulty is the authority's difficulty label for a problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty normalises a difficulty label ("easy", "HARD", ...).
func ParseDifficulty(s string) (Difficulty, error) {
	// A Caser keeps state, so one is built per call.
	d := Difficulty(cases.Title(language.English).String(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// Links are the external references shown next to a problem.
type Links struct {
	Code    string `json:"code,omitempty"`
	Video   string `json:"video,omitempty"`
	Article string `json:"article,omitempty"`
}

// Problem is a single practice problem within a topic.
type Problem struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Difficulty Difficulty `json:"difficulty"`
	Completed  bool       `json:"completed"`
	Links      Links      `json:"links"`
}

// Topic groups problems. Progress is derived; set it only through Recompute.
type Topic struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Progress float64   `json:"progress"`
	Problems []Problem `json:"problems"`
}

// Clone returns a deep copy of the topic.
func (t Topic) Clone() Topic {
	c := t
	if t.Problems != nil {
		c.Problems = make([]Problem, len(t.Problems))
		copy(c.Problems, t.Problems)
	}
	return c
}

// Problem returns the index of the problem with the given id, or -1.
func (t Topic) Problem(id string) int {
	for i, p := range t.Problems {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Solved counts completed problems.
func (t Topic) Solved() int {
	n := 0
	for _, p := range t.Problems {
		if p.Completed {
			n++
		}
	}
	return n
}

// CloneTopics deep-copies a collection.
func CloneTopics(topics []Topic) []Topic {
	if topics == nil {
		return nil
	}
	out := make([]Topic, len(topics))
	for i, t := range topics {
		out[i] = t.Clone()
	}
	return out
}

// Session is the authenticated caller a Reconciler and its SyncClient act for.
// The token is obtained and refreshed elsewhere.
type Session struct {
	Token  string
	UserID string
}
