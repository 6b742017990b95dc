package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/p-n-ai/pai-tracker/internal/progress"
	"github.com/p-n-ai/pai-tracker/internal/summary"
)

// recentLimit is how many solved problems the summary lists.
const recentLimit = 5

// solveKey identifies a problem; problem ids are only unique within a topic.
type solveKey struct {
	topicID   string
	problemID string
}

// Memory is an in-process authority over a fixed catalog. It implements
// progress.SyncClient and summary.Client and is used for local runs and
// tests.
type Memory struct {
	mu     sync.Mutex
	topics []progress.Topic
	user   summary.User
	solved map[solveKey]time.Time
	failed error
	now    func() time.Time
}

// NewMemory creates a Memory authority seeded with topics. Problems marked
// completed in the catalog count as solved at creation time.
func NewMemory(topics []progress.Topic, user summary.User) *Memory {
	m := &Memory{
		topics: make([]progress.Topic, len(topics)),
		user:   user,
		solved: make(map[solveKey]time.Time),
		now:    time.Now,
	}
	start := m.now()
	for i, t := range topics {
		m.topics[i] = progress.Recompute(t.Clone())
		for _, p := range t.Problems {
			if p.Completed {
				m.solved[solveKey{t.ID, p.ID}] = start
			}
		}
	}
	if m.user.MemberSince.IsZero() {
		m.user.MemberSince = start
	}
	return m
}

// FailWith makes every following call fail with err until it is called
// again with nil.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.failed = err
	m.mu.Unlock()
}

func (m *Memory) FetchAll(ctx context.Context) ([]progress.Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed != nil {
		return nil, m.failed
	}
	return progress.CloneTopics(m.topics), nil
}

func (m *Memory) CommitToggle(ctx context.Context, topicID, problemID string, completed bool) (progress.Ack, error) {
	if err := ctx.Err(); err != nil {
		return progress.Ack{}, unavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed != nil {
		return progress.Ack{}, m.failed
	}

	next, _, err := progress.Apply(m.topics, topicID, problemID, completed)
	if err != nil {
		return progress.Ack{}, &progress.RemoteError{Status: 404, Message: fmt.Sprintf("Problem %s not found", problemID)}
	}
	m.topics = next
	key := solveKey{topicID, problemID}
	if completed {
		m.solved[key] = m.now()
	} else {
		delete(m.solved, key)
	}
	return progress.Ack{Message: "Progress updated successfully"}, nil
}

func (m *Memory) FetchSummary(ctx context.Context) (summary.Summary, error) {
	if err := ctx.Err(); err != nil {
		return summary.Summary{}, unavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed != nil {
		return summary.Summary{}, m.failed
	}

	s := summary.Summary{
		User:                 m.user,
		ProblemsByDifficulty: make(map[string]int),
	}
	var recent []summary.RecentProblem
	daily := make(map[string]int)
	for _, t := range m.topics {
		for _, p := range t.Problems {
			s.TotalProblems++
			if !p.Completed {
				continue
			}
			s.SolvedProblems++
			s.ProblemsByDifficulty[string(p.Difficulty)]++
			at := m.solved[solveKey{t.ID, p.ID}]
			daily[at.UTC().Format(time.DateOnly)]++
			recent = append(recent, summary.RecentProblem{
				Title:      p.Name,
				Topic:      t.Title,
				Difficulty: string(p.Difficulty),
				SolvedAt:   at,
			})
		}
	}
	s.CompletionRate = progress.Percent(s.SolvedProblems, s.TotalProblems)

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		s.DailyProgress = append(s.DailyProgress, summary.DailyCount{Date: d, Count: daily[d]})
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].SolvedAt.After(recent[j].SolvedAt)
	})
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	s.RecentProblems = recent
	return s, nil
}
