package progress

import (
	"context"
	"sync"
)

// Ack is the authority's acknowledgement of a committed toggle.
type Ack struct {
	Message string
}

// SyncClient is what the core needs from the remote authority.
//
// FetchAll fails with ErrRemoteUnavailable or *RemoteError. CommitToggle may
// additionally fail with ErrConflict. A timeout is ErrRemoteUnavailable.
type SyncClient interface {
	FetchAll(ctx context.Context) ([]Topic, error)
	CommitToggle(ctx context.Context, topicID, problemID string, completed bool) (Ack, error)
}

// Commit records one CommitToggle call seen by a MockClient.
type Commit struct {
	TopicID   string
	ProblemID string
	Completed bool
}

// MockClient is a test double for SyncClient. With no hooks set it acts as
// an authority holding Topics: commits apply to it and fetches return it.
type MockClient struct {
	mu sync.Mutex

	Topics   []Topic
	FetchErr error
	// CommitFn overrides commit behaviour when set.
	CommitFn func(ctx context.Context, c Commit) (Ack, error)
	// FetchFn overrides fetch behaviour when set. n counts FetchAll calls
	// from 1.
	FetchFn func(ctx context.Context, n int) ([]Topic, error)

	commits []Commit
	fetches int
}

// NewMockClient creates a MockClient seeded with topics.
func NewMockClient(topics []Topic) *MockClient {
	return &MockClient{Topics: CloneTopics(topics)}
}

func (m *MockClient) FetchAll(ctx context.Context) ([]Topic, error) {
	m.mu.Lock()
	m.fetches++
	n, fn := m.fetches, m.FetchFn
	if fn == nil {
		defer m.mu.Unlock()
		if m.FetchErr != nil {
			return nil, m.FetchErr
		}
		return CloneTopics(m.Topics), nil
	}
	m.mu.Unlock()
	return fn(ctx, n)
}

func (m *MockClient) CommitToggle(ctx context.Context, topicID, problemID string, completed bool) (Ack, error) {
	c := Commit{TopicID: topicID, ProblemID: problemID, Completed: completed}

	m.mu.Lock()
	m.commits = append(m.commits, c)
	fn := m.CommitFn
	m.mu.Unlock()

	if fn != nil {
		ack, err := fn(ctx, c)
		if err != nil {
			return Ack{}, err
		}
		m.setCompleted(c)
		return ack, nil
	}

	if !m.setCompleted(c) {
		return Ack{}, &RemoteError{Status: 404, Message: "problem not found"}
	}
	return Ack{Message: "Progress updated"}, nil
}

func (m *MockClient) setCompleted(c Commit) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ti := range m.Topics {
		if m.Topics[ti].ID != c.TopicID {
			continue
		}
		pi := m.Topics[ti].Problem(c.ProblemID)
		if pi < 0 {
			return false
		}
		m.Topics[ti].Problems[pi].Completed = c.Completed
		m.Topics[ti] = Recompute(m.Topics[ti])
		return true
	}
	return false
}

// Commits returns the commits seen so far.
func (m *MockClient) Commits() []Commit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Commit{}, m.commits...)
}

// Fetches returns how many times FetchAll was called.
func (m *MockClient) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// SetFetchErr changes the FetchAll failure under the lock.
func (m *MockClient) SetFetchErr(err error) {
	m.mu.Lock()
	m.FetchErr = err
	m.mu.Unlock()
}
