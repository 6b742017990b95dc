package progress

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	in := sampleTopics()
	orig := CloneTopics(in)

	got, undo, err := Apply(in, "t1", "p1", true)
	require.NoError(t, err)

	assert.True(t, got[0].Problems[0].Completed)
	assert.Equal(t, 50.0, got[0].Progress)
	assert.Equal(t, "t1", undo.TopicID)
	assert.Equal(t, "p1", undo.ProblemID)

	if diff := cmp.Diff(orig, in); diff != "" {
		t.Errorf("input collection modified (-want +got):\n%s", diff)
	}
	// Only the target topic differs.
	if diff := cmp.Diff(orig[1], got[1]); diff != "" {
		t.Errorf("untouched topic changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig[0], undo.Prior()); diff != "" {
		t.Errorf("undo prior mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_NotFound(t *testing.T) {
	tests := []struct {
		name      string
		topicID   string
		problemID string
	}{
		{"unknown topic", "t9", "p1"},
		{"unknown problem", "t1", "p9"},
		{"problem in other topic", "t1", "p3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Apply(sampleTopics(), tt.topicID, tt.problemID, true)
			assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
		})
	}
}

func TestUndo_RestoreExact(t *testing.T) {
	in := sampleTopics()
	got, undo, err := Apply(in, "t1", "p2", true)
	require.NoError(t, err)

	restored := undo.Restore(got[0])
	if diff := cmp.Diff(in[0], restored); diff != "" {
		t.Errorf("restore not exact (-want +got):\n%s", diff)
	}
}

func TestUndo_RestoreKeepsConcurrentChange(t *testing.T) {
	in := sampleTopics()
	afterP1, undoP1, err := Apply(in, "t1", "p1", true)
	require.NoError(t, err)
	afterP2, _, err := Apply(afterP1, "t1", "p2", true)
	require.NoError(t, err)
	assert.Equal(t, 100.0, afterP2[0].Progress)

	// p1's commit fails while p2 stays applied.
	restored := undoP1.Restore(afterP2[0])

	assert.False(t, restored.Problems[0].Completed)
	assert.True(t, restored.Problems[1].Completed)
	assert.Equal(t, 50.0, restored.Progress)
}

func TestUndo_RestoreMissingProblem(t *testing.T) {
	in := sampleTopics()
	_, undo, err := Apply(in, "t1", "p1", true)
	require.NoError(t, err)

	refreshed := Topic{ID: "t1", Title: "Arrays", Problems: []Problem{{ID: "p2"}}}
	restored := undo.Restore(refreshed)
	if diff := cmp.Diff(refreshed, restored); diff != "" {
		t.Errorf("restore should leave a topic without the problem alone (-want +got):\n%s", diff)
	}
}
