// Package summary builds the read-only progress profile shown next to the
// topic list. All counters come from the authority and are displayed as-is.
package summary

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// User is the authority's profile header.
type User struct {
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	MemberSince time.Time `json:"memberSince"`
}

// DailyCount is one point of the daily solve series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RecentProblem is a recently solved problem.
type RecentProblem struct {
	Title      string    `json:"title"`
	Topic      string    `json:"topic"`
	Difficulty string    `json:"difficulty"`
	SolvedAt   time.Time `json:"solvedAt"`
}

// Summary is the aggregate payload as reported by the authority.
type Summary struct {
	User                 User            `json:"user"`
	TotalProblems        int             `json:"totalProblems"`
	SolvedProblems       int             `json:"solvedProblems"`
	CompletionRate       float64         `json:"completionRate"`
	ProblemsByDifficulty map[string]int  `json:"problemsByDifficulty"`
	DailyProgress        []DailyCount    `json:"dailyProgress"`
	RecentProblems       []RecentProblem `json:"recentProblems"`
}

// Client fetches the aggregate payload. Failures use the progress error
// taxonomy.
type Client interface {
	FetchSummary(ctx context.Context) (Summary, error)
}

// DifficultyCount is one slice of the difficulty breakdown.
type DifficultyCount struct {
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

// TopicProgress is one row of the per-topic breakdown.
type TopicProgress struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Progress float64 `json:"progress"`
	Solved   int     `json:"solved"`
	Total    int     `json:"total"`
}

// View is the display model. It never recomputes the authority's counters.
type View struct {
	User           User              `json:"user"`
	Initials       string            `json:"initials"`
	TotalProblems  int               `json:"totalProblems"`
	SolvedProblems int               `json:"solvedProblems"`
	CompletionRate float64           `json:"completionRate"`
	Difficulty     []DifficultyCount `json:"difficulty"`
	Daily          []DailyCount      `json:"daily"`
	Recent         []RecentProblem   `json:"recent"`
	Topics         []TopicProgress   `json:"topics"`
}

// Build turns an authority summary and the canonical snapshot into a View.
func Build(s Summary, topics []progress.Topic) View {
	v := View{
		User:           s.User,
		Initials:       Initials(s.User.FullName),
		TotalProblems:  s.TotalProblems,
		SolvedProblems: s.SolvedProblems,
		CompletionRate: s.CompletionRate,
		Difficulty:     difficultyBreakdown(s.ProblemsByDifficulty),
		Daily:          append([]DailyCount{}, s.DailyProgress...),
		Recent:         append([]RecentProblem{}, s.RecentProblems...),
		Topics:         make([]TopicProgress, 0, len(topics)),
	}
	for _, t := range topics {
		v.Topics = append(v.Topics, TopicProgress{
			ID:       t.ID,
			Title:    t.Title,
			Progress: t.Progress,
			Solved:   t.Solved(),
			Total:    len(t.Problems),
		})
	}
	return v
}

// Initials returns the upper-cased first letter of each word of name.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// difficultyBreakdown orders Easy, Medium, Hard first and any other label
// after them alphabetically. Labels keep the authority's spelling.
func difficultyBreakdown(counts map[string]int) []DifficultyCount {
	out := make([]DifficultyCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, DifficultyCount{Difficulty: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := difficultyRank(out[i].Difficulty), difficultyRank(out[j].Difficulty)
		if ri != rj {
			return ri < rj
		}
		return out[i].Difficulty < out[j].Difficulty
	})
	return out
}

func difficultyRank(name string) int {
	d, err := progress.ParseDifficulty(name)
	if err != nil {
		return 3
	}
	switch d {
	case progress.DifficultyEasy:
		return 0
	case progress.DifficultyMedium:
		return 1
	default:
		return 2
	}
}
