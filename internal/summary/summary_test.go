package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-tracker/internal/progress"
)

func sampleSummary() Summary {
	return Summary{
		User: User{
			FullName:    "ada lovelace byron",
			Email:       "ada@example.com",
			MemberSince: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		TotalProblems:  120,
		SolvedProblems: 37,
		CompletionRate: 30.83,
		ProblemsByDifficulty: map[string]int{
			"Hard":   4,
			"Easy":   20,
			"Bonus":  1,
			"Medium": 12,
			"Arcane": 2,
		},
		DailyProgress: []DailyCount{
			{Date: "2024-05-02", Count: 3},
			{Date: "2024-05-01", Count: 1},
		},
		RecentProblems: []RecentProblem{
			{Title: "Two Sum", Topic: "Arrays", Difficulty: "Easy", SolvedAt: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)},
		},
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "AL"},
		{"ada lovelace byron", "ALB"},
		{"  grace   hopper ", "GH"},
		{"émile", "É"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Initials(tt.name); got != tt.want {
				t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestBuild_CountersVerbatim(t *testing.T) {
	s := sampleSummary()
	topics := []progress.Topic{
		{ID: "t1", Title: "Arrays", Progress: 50, Problems: []progress.Problem{{ID: "p1", Completed: true}, {ID: "p2"}}},
		// A view copies progress as-is even when it looks off.
		{ID: "t2", Title: "Graphs", Progress: 12.5, Problems: []progress.Problem{{ID: "p3"}}},
	}

	v := Build(s, topics)

	assert.Equal(t, 120, v.TotalProblems)
	assert.Equal(t, 37, v.SolvedProblems)
	assert.Equal(t, 30.83, v.CompletionRate)
	assert.Equal(t, "ALB", v.Initials)
	assert.Equal(t, s.DailyProgress, v.Daily)
	assert.Equal(t, s.RecentProblems, v.Recent)

	want := []DifficultyCount{
		{"Easy", 20}, {"Medium", 12}, {"Hard", 4}, {"Arcane", 2}, {"Bonus", 1},
	}
	if diff := cmp.Diff(want, v.Difficulty); diff != "" {
		t.Errorf("difficulty order mismatch (-want +got):\n%s", diff)
	}

	wantTopics := []TopicProgress{
		{ID: "t1", Title: "Arrays", Progress: 50, Solved: 1, Total: 2},
		{ID: "t2", Title: "Graphs", Progress: 12.5, Solved: 0, Total: 1},
	}
	if diff := cmp.Diff(wantTopics, v.Topics); diff != "" {
		t.Errorf("topics mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregator_CachesUntilInvalidated(t *testing.T) {
	client := &MockClient{Summary: sampleSummary()}
	agg := NewAggregator(AggregatorConfig{
		Client: client,
		Cache:  NewMemoryCache(),
		TTL:    time.Minute,
		UserID: "user-1",
	})
	ctx := context.Background()

	_, err := agg.View(ctx, nil)
	require.NoError(t, err)
	_, err = agg.View(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, client.Calls())

	require.NoError(t, agg.Invalidate(ctx))
	_, err = agg.View(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, client.Calls())
}

func TestAggregator_NoCache(t *testing.T) {
	client := &MockClient{Summary: sampleSummary()}
	agg := NewAggregator(AggregatorConfig{Client: client})

	for i := 0; i < 3; i++ {
		_, err := agg.View(context.Background(), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, client.Calls())
	assert.NoError(t, agg.Invalidate(context.Background()))
}

func TestAggregator_FetchError(t *testing.T) {
	client := &MockClient{Err: &progress.RemoteError{Status: 401, Message: "token expired"}}
	agg := NewAggregator(AggregatorConfig{Client: client, Cache: NewMemoryCache()})

	_, err := agg.View(context.Background(), nil)
	var re *progress.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "token expired", re.Message)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (Summary, bool, error) {
	return Summary{}, false, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, string, Summary, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(context.Context, string) error { return errors.New("connection refused") }

func TestAggregator_CacheFailureFallsThrough(t *testing.T) {
	client := &MockClient{Summary: sampleSummary()}
	agg := NewAggregator(AggregatorConfig{Client: client, Cache: brokenCache{}})

	v, err := agg.View(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 37, v.SolvedProblems)
	assert.Error(t, agg.Invalidate(context.Background()))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u", sampleSummary(), time.Minute))
	_, ok, err := c.Get(ctx, "u")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "u")
	require.NoError(t, err)
	assert.False(t, ok)
}
