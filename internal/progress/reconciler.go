package progress

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is where a problem is in its reconciliation cycle.
type State int

const (
	StateIdle State = iota
	StatePending
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// progressTolerance is how far an authority-reported progress may drift from
// the recomputed value before it is logged.
const progressTolerance = 0.01

// ReconcilerConfig holds dependencies for a Reconciler.
type ReconcilerConfig struct {
	Store   *SnapshotStore
	Client  SyncClient
	Session Session
	Events  EventLogger
	// OnCommit runs after a toggle is committed by the authority.
	OnCommit func(ctx context.Context, o Outcome)
	Logger   *slog.Logger
}

// Outcome describes how a toggle resolved.
type Outcome struct {
	TopicID   string `json:"topic_id"`
	ProblemID string `json:"problem_id"`
	Completed bool   `json:"completed"`
	State     State  `json:"state"`
	// Warning is set when the commit succeeded but the refresh after it
	// failed; the optimistic state is kept.
	Warning error `json:"-"`
}

type problemKey struct {
	topicID   string
	problemID string
}

// Reconciler applies toggles optimistically and reconciles them with the
// authority. One Reconciler serves one session.
//
// Toggles on different problems run concurrently; a second toggle on a
// problem that is still pending is rejected with ErrBusy.
type Reconciler struct {
	store    *SnapshotStore
	client   SyncClient
	session  Session
	events   EventLogger
	onCommit func(ctx context.Context, o Outcome)
	logger   *slog.Logger

	mu         sync.Mutex
	pending    map[problemKey]bool // desired completion per in-flight toggle
	fetchSeq   uint64
	appliedSeq uint64
}

// NewReconciler creates a Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	store := cfg.Store
	if store == nil {
		store = NewSnapshotStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:    store,
		client:   cfg.Client,
		session:  cfg.Session,
		events:   events,
		onCommit: cfg.OnCommit,
		logger:   logger.With("component", "reconciler"),
		pending:  make(map[problemKey]bool),
	}
}

// Store returns the snapshot store the reconciler writes to.
func (r *Reconciler) Store() *SnapshotStore {
	return r.store
}

// State reports whether a problem has a toggle in flight.
func (r *Reconciler) State(topicID, problemID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[problemKey{topicID, problemID}]; ok {
		return StatePending
	}
	return StateIdle
}

// Pending returns the number of toggles in flight.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Toggle flips a problem's completion. The flipped value is visible in the
// store before the authority is asked to commit it. On a failed commit the
// problem is restored and the error returned; on success the store is
// replaced by a fresh fetch.
func (r *Reconciler) Toggle(ctx context.Context, topicID, problemID string) (Outcome, error) {
	key := problemKey{topicID, problemID}
	out := Outcome{TopicID: topicID, ProblemID: problemID}

	var undo Undo
	r.mu.Lock()
	if _, busy := r.pending[key]; busy {
		r.mu.Unlock()
		return out, fmt.Errorf("problem %s in topic %s: %w", problemID, topicID, ErrBusy)
	}
	err := r.store.update(topicID, func(t Topic) (Topic, error) {
		pi := t.Problem(problemID)
		if pi < 0 {
			return t, fmt.Errorf("problem %s in topic %s: %w", problemID, topicID, ErrNotFound)
		}
		out.Completed = !t.Problems[pi].Completed
		next, u, err := Apply([]Topic{t}, topicID, problemID, out.Completed)
		if err != nil {
			return t, err
		}
		undo = u
		return next[0], nil
	})
	if err != nil {
		r.mu.Unlock()
		return out, err
	}
	r.pending[key] = out.Completed
	r.mu.Unlock()

	out.State = StatePending
	r.record(EventTogglePending, topicID, problemID, map[string]any{"completed": out.Completed})

	if _, err := r.client.CommitToggle(ctx, topicID, problemID, out.Completed); err != nil {
		if !IsRemoteFailure(err) {
			err = fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		r.rollback(key, undo)
		out.State = StateRolledBack
		r.logger.Warn("toggle rolled back",
			"topic_id", topicID,
			"problem_id", problemID,
			"error", err,
		)
		r.record(EventToggleRolledBack, topicID, problemID, map[string]any{"error": err.Error()})
		return out, fmt.Errorf("commit toggle %s/%s: %w", topicID, problemID, err)
	}

	out.State = StateCommitted
	if err := r.refresh(ctx, &key); err != nil {
		out.Warning = err
		r.logger.Warn("refresh after commit failed, keeping optimistic state",
			"topic_id", topicID,
			"problem_id", problemID,
			"error", err,
		)
		r.record(EventRefreshFailed, topicID, problemID, map[string]any{"error": err.Error()})
	}
	r.record(EventToggleCommitted, topicID, problemID, map[string]any{"completed": out.Completed})

	if r.onCommit != nil {
		r.onCommit(ctx, out)
	}
	return out, nil
}

// Refresh replaces the store with the authority's collection. Toggles still
// in flight stay applied on top of it. On failure the store is unchanged.
func (r *Reconciler) Refresh(ctx context.Context) error {
	if err := r.refresh(ctx, nil); err != nil {
		r.record(EventRefreshFailed, "", "", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}

// refresh fetches and installs a fresh collection. When resolved is set,
// that toggle leaves the pending set in the same step, whether or not the
// fetch succeeded, and fetches started earlier are dropped from then on.
func (r *Reconciler) refresh(ctx context.Context, resolved *problemKey) error {
	r.mu.Lock()
	r.fetchSeq++
	seq := r.fetchSeq
	r.mu.Unlock()

	topics, fetchErr := r.client.FetchAll(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if resolved != nil {
		delete(r.pending, *resolved)
		// Fetches started before this one may predate the commit and no
		// overlay protects it anymore, so they must not land.
		if seq > r.appliedSeq {
			r.appliedSeq = seq
		}
	}
	if fetchErr != nil {
		if !IsRemoteFailure(fetchErr) {
			fetchErr = fmt.Errorf("%w: %v", ErrRemoteUnavailable, fetchErr)
		}
		return fmt.Errorf("fetch topics: %w", fetchErr)
	}
	if seq < r.appliedSeq {
		r.logger.Debug("dropping stale fetch", "seq", seq, "applied_seq", r.appliedSeq)
		return nil
	}
	r.appliedSeq = seq

	topics = r.canonicalize(topics)
	for k, desired := range r.pending {
		next, _, err := Apply(topics, k.topicID, k.problemID, desired)
		if err != nil {
			r.logger.Warn("pending toggle no longer in snapshot",
				"topic_id", k.topicID,
				"problem_id", k.problemID,
			)
			continue
		}
		topics = next
	}
	r.store.Replace(topics)
	return nil
}

func (r *Reconciler) rollback(key problemKey, undo Undo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, key)
	if err := r.store.Patch(key.topicID, undo.Restore); err != nil {
		// The topic vanished in a refresh; the canonical state already stands.
		r.logger.Warn("rollback target missing", "topic_id", key.topicID, "error", err)
	}
}

// canonicalize recomputes progress for fetched topics, logging where the
// authority's figure disagrees with its own problem list.
func (r *Reconciler) canonicalize(topics []Topic) []Topic {
	out := make([]Topic, len(topics))
	for i, t := range topics {
		fixed := Recompute(t.Clone())
		if math.Abs(fixed.Progress-t.Progress) > progressTolerance {
			r.logger.Warn("authority progress disagrees with problem list",
				"topic_id", t.ID,
				"reported", t.Progress,
				"recomputed", fixed.Progress,
			)
		}
		out[i] = fixed
	}
	return out
}

func (r *Reconciler) record(eventType, topicID, problemID string, data map[string]any) {
	err := r.events.LogEvent(Event{
		ID:        uuid.NewString(),
		UserID:    r.session.UserID,
		TopicID:   topicID,
		ProblemID: problemID,
		EventType: eventType,
		Data:      data,
		CreatedAt: time.Now(),
	})
	if err != nil {
		r.logger.Warn("failed to log event", "type", eventType, "error", err)
	}
}
