package progress

import "fmt"

// Undo restores a topic to its state before an Apply.
type Undo struct {
	TopicID   string
	ProblemID string
	prior     Topic
	applied   Topic
}

// Prior returns a copy of the topic as it was before the mutation.
func (u Undo) Prior() Topic {
	return u.prior.Clone()
}

// Apply sets the completion of one problem and recomputes its topic's
// progress. The input collection is left untouched; the returned collection
// shares every other topic with it.
func Apply(topics []Topic, topicID, problemID string, completed bool) ([]Topic, Undo, error) {
	ti := -1
	for i, t := range topics {
		if t.ID == topicID {
			ti = i
			break
		}
	}
	if ti < 0 {
		return nil, Undo{}, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}

	pi := topics[ti].Problem(problemID)
	if pi < 0 {
		return nil, Undo{}, fmt.Errorf("problem %s in topic %s: %w", problemID, topicID, ErrNotFound)
	}

	prior := topics[ti].Clone()
	updated := topics[ti].Clone()
	updated.Problems[pi].Completed = completed
	updated = Recompute(updated)

	next := make([]Topic, len(topics))
	copy(next, topics)
	next[ti] = updated

	return next, Undo{
		TopicID:   topicID,
		ProblemID: problemID,
		prior:     prior,
		applied:   updated.Clone(),
	}, nil
}

// Restore undoes the mutation on the topic's current value.
//
// If the topic still holds exactly what Apply produced, the prior value is
// returned unchanged. Otherwise the topic moved on in the meantime (another
// problem toggled, or a refresh landed) and only the target problem's prior
// record is reinstated before recomputing.
func (u Undo) Restore(current Topic) Topic {
	if topicsEqual(current, u.applied) {
		return u.prior.Clone()
	}

	restored := current.Clone()
	pi := restored.Problem(u.ProblemID)
	prev := u.prior.Problem(u.ProblemID)
	if pi < 0 || prev < 0 {
		return restored
	}
	restored.Problems[pi] = u.prior.Problems[prev]
	return Recompute(restored)
}

func topicsEqual(a, b Topic) bool {
	if a.ID != b.ID || a.Title != b.Title || a.Progress != b.Progress || len(a.Problems) != len(b.Problems) {
		return false
	}
	for i := range a.Problems {
		if a.Problems[i] != b.Problems[i] {
			return false
		}
	}
	return true
}
