package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name   string
		solved int
		total  int
		want   float64
	}{
		{"zero total", 0, 0, 0},
		{"none solved", 0, 4, 0},
		{"half", 1, 2, 50},
		{"one third", 1, 3, 33.333333},
		{"all", 3, 3, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percent(tt.solved, tt.total), 1e-4)
		})
	}
}

func TestRecompute(t *testing.T) {
	topic := Topic{
		ID:       "t1",
		Title:    "Arrays and Strings",
		Progress: 77, // stale
		Problems: []Problem{
			{ID: "p1", Name: "Two Sum", Difficulty: DifficultyEasy, Completed: true},
			{ID: "p2", Name: "Valid Palindrome", Difficulty: DifficultyEasy},
			{ID: "p3", Name: "3Sum", Difficulty: DifficultyMedium},
			{ID: "p4", Name: "Trapping Rain Water", Difficulty: DifficultyHard, Completed: true},
		},
	}

	got := Recompute(topic)

	assert.Equal(t, 50.0, got.Progress)
	assert.Equal(t, topic.Title, got.Title)
	assert.Equal(t, topic.Problems, got.Problems)
	assert.Equal(t, 77.0, topic.Progress, "input must not change")
}

func TestRecompute_NoProblems(t *testing.T) {
	got := Recompute(Topic{ID: "empty", Progress: 40})
	assert.Equal(t, 0.0, got.Progress)
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"Easy", DifficultyEasy, false},
		{"easy", DifficultyEasy, false},
		{"MEDIUM", DifficultyMedium, false},
		{" hard ", DifficultyHard, false},
		{"insane", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDifficulty(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
