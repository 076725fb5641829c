// Package session owns all in-memory session state: lifecycle transitions,
// stage results and the append-only progress event log with live
// subscriptions.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/pkg/metrics"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrEmptyQuery    = errors.New("query is required")
	ErrInvalidRounds = errors.New("max rounds must be between 1 and 10")
)

// Bounds for the discussion round count accepted at submission.
const (
	MinRounds = 1
	MaxRounds = 10
)

// state holds everything known about one session. Appends and transitions
// take the per-session mutex; the cond wakes event subscribers.
type state struct {
	mu   sync.Mutex
	cond *sync.Cond

	session reflection.Session
	turns   []reflection.ConversationTurn
	events  []reflection.ProgressEvent
	// terminal is set once a session_completed/session_error event lands;
	// results are frozen from then on.
	terminal bool

	discussion     *reflection.DiscussionResult
	needs          []reflection.NeedRecord
	evaluation     *reflection.EvaluationReport
	prioritization *reflection.PrioritizationReport
}

// Store is the process-wide keyed session container. Distinct sessions never
// contend with each other beyond the map lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
}

// NewStore bootstraps an empty in-memory store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*state)}
}

// Create validates the submission and registers a queued session. Nothing is
// stored when validation fails.
func (s *Store) Create(query string, maxRounds int) (reflection.Session, error) {
	if strings.TrimSpace(query) == "" {
		return reflection.Session{}, ErrEmptyQuery
	}
	if maxRounds < MinRounds || maxRounds > MaxRounds {
		return reflection.Session{}, ErrInvalidRounds
	}

	sess := reflection.Session{
		ID:        uuid.NewString(),
		Status:    reflection.StatusQueued,
		Query:     query,
		MaxRounds: maxRounds,
		CreatedAt: time.Now().UTC(),
	}

	st := &state{session: sess}
	st.cond = sync.NewCond(&st.mu)

	s.mu.Lock()
	s.sessions[sess.ID] = st
	s.mu.Unlock()

	metrics.RecordSessionCreated()
	return sess, nil
}

// Get returns a copy of the session record.
func (s *Store) Get(id string) (reflection.Session, error) {
	st, err := s.lookup(id)
	if err != nil {
		return reflection.Session{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session, nil
}

// Len reports how many sessions exist.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// List returns copies of every session record.
func (s *Store) List() []reflection.Session {
	s.mu.RLock()
	states := make([]*state, 0, len(s.sessions))
	for _, st := range s.sessions {
		states = append(states, st)
	}
	s.mu.RUnlock()

	sessions := make([]reflection.Session, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		sessions = append(sessions, st.session)
		st.mu.Unlock()
	}
	return sessions
}

// MarkRunning moves a queued session to running alongside the first unit of
// background work.
func (s *Store) MarkRunning(id string) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Status != reflection.StatusQueued {
		return nil
	}
	st.session.Status = reflection.StatusRunning
	return nil
}

// Complete marks the session finished and appends the terminal event.
func (s *Store) Complete(id string) error {
	return s.finish(id, reflection.StatusCompleted, "")
}

// Fail records the terminal error state with a human-readable message.
func (s *Store) Fail(id, message string) error {
	return s.finish(id, reflection.StatusError, message)
}

func (s *Store) finish(id string, status reflection.Status, message string) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Status.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	st.session.Status = status
	st.session.CompletedAt = &now
	st.session.Error = message

	eventType := reflection.EventSessionCompleted
	data := map[string]any{"status": string(status)}
	if status == reflection.StatusError {
		eventType = reflection.EventSessionError
		data["message"] = message
	}
	st.appendEventLocked(reflection.ProgressEvent{
		EventType: eventType,
		Agent:     reflection.AgentSystem,
		Data:      data,
		Timestamp: now,
	})

	metrics.RecordSessionFinished(string(status))
	return nil
}

// AppendTurn records one conversation turn as it is produced.
func (s *Store) AppendTurn(id string, turn reflection.ConversationTurn) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.terminal {
		return nil
	}
	st.turns = append(st.turns, turn)
	return nil
}

// Turns returns a copy of the conversation so far.
func (s *Store) Turns(id string) ([]reflection.ConversationTurn, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]reflection.ConversationTurn(nil), st.turns...), nil
}

// AppendEvent appends a progress event and wakes subscribers. Events arriving
// after the terminal event are dropped; the log is frozen at that point.
func (s *Store) AppendEvent(id string, ev reflection.ProgressEvent) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.terminal {
		return nil
	}
	st.appendEventLocked(ev)
	return nil
}

func (st *state) appendEventLocked(ev reflection.ProgressEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	st.events = append(st.events, ev)
	if ev.EventType.Terminal() {
		st.terminal = true
	}
	metrics.RecordEventAppended()
	st.cond.Broadcast()
}

// Events returns a copy of the full event log.
func (s *Store) Events(id string) ([]reflection.ProgressEvent, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]reflection.ProgressEvent(nil), st.events...), nil
}

// Subscribe returns an ordered stream of progress events. Without replay the
// stream starts at events appended after subscription, except that a
// subscriber attaching to an already-finished session still receives the
// terminal event; with replay the full history is delivered first. The
// channel closes after the terminal event or when ctx is cancelled. Appends
// never block on slow subscribers.
func (s *Store) Subscribe(ctx context.Context, id string, replay bool) (<-chan reflection.ProgressEvent, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	next := len(st.events)
	if replay {
		next = 0
	} else if st.terminal && next > 0 {
		// Back up to the terminal event so the subscriber learns the
		// session already ended.
		next = len(st.events) - 1
	}
	st.mu.Unlock()

	// Wake the waiter when the consumer goes away.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			st.cond.Broadcast()
		case <-done:
		}
	}()

	ch := make(chan reflection.ProgressEvent, 16)
	go func() {
		defer close(ch)
		defer close(done)
		for {
			st.mu.Lock()
			for next >= len(st.events) && !st.terminal && ctx.Err() == nil {
				st.cond.Wait()
			}
			if ctx.Err() != nil {
				st.mu.Unlock()
				return
			}
			if next >= len(st.events) && st.terminal {
				st.mu.Unlock()
				return
			}
			pending := append([]reflection.ProgressEvent(nil), st.events[next:]...)
			next = len(st.events)
			st.mu.Unlock()

			for _, ev := range pending {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
				if ev.EventType.Terminal() {
					return
				}
			}
		}
	}()

	return ch, nil
}

// SetDiscussion stores the discussion stage result.
func (s *Store) SetDiscussion(id string, result reflection.DiscussionResult) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Status.Terminal() {
		return nil
	}
	st.discussion = &result
	return nil
}

// Discussion returns the discussion result, or ok=false when the stage has
// not produced one.
func (s *Store) Discussion(id string) (reflection.DiscussionResult, bool, error) {
	st, err := s.lookup(id)
	if err != nil {
		return reflection.DiscussionResult{}, false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.discussion == nil {
		return reflection.DiscussionResult{}, false, nil
	}
	return *st.discussion, true, nil
}

// SetNeeds stores the extracted need records.
func (s *Store) SetNeeds(id string, needs []reflection.NeedRecord) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Status.Terminal() {
		return nil
	}
	st.needs = append([]reflection.NeedRecord(nil), needs...)
	return nil
}

// Needs returns the extracted need records.
func (s *Store) Needs(id string) ([]reflection.NeedRecord, bool, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.needs == nil {
		return nil, false, nil
	}
	return append([]reflection.NeedRecord(nil), st.needs...), true, nil
}

// SetEvaluation stores the evaluation stage result.
func (s *Store) SetEvaluation(id string, report reflection.EvaluationReport) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Status.Terminal() {
		return nil
	}
	st.evaluation = &report
	return nil
}

// Evaluation returns the evaluation report, or ok=false when the stage has
// not produced one.
func (s *Store) Evaluation(id string) (reflection.EvaluationReport, bool, error) {
	st, err := s.lookup(id)
	if err != nil {
		return reflection.EvaluationReport{}, false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.evaluation == nil {
		return reflection.EvaluationReport{}, false, nil
	}
	return *st.evaluation, true, nil
}

// SetPrioritization stores the prioritization stage result.
func (s *Store) SetPrioritization(id string, report reflection.PrioritizationReport) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Status.Terminal() {
		return nil
	}
	st.prioritization = &report
	return nil
}

// Prioritization returns the prioritization report, or ok=false when the
// stage has not produced one.
func (s *Store) Prioritization(id string) (reflection.PrioritizationReport, bool, error) {
	st, err := s.lookup(id)
	if err != nil {
		return reflection.PrioritizationReport{}, false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.prioritization == nil {
		return reflection.PrioritizationReport{}, false, nil
	}
	return *st.prioritization, true, nil
}

// Recorder binds append operations to a single session so pipeline stages
// never handle raw identifiers.
type Recorder struct {
	store *Store
	id    string
}

// Recorder returns an appender bound to the given session.
func (s *Store) Recorder(id string) *Recorder {
	return &Recorder{store: s, id: id}
}

// AppendTurn records a conversation turn for the bound session.
func (r *Recorder) AppendTurn(turn reflection.ConversationTurn) {
	_ = r.store.AppendTurn(r.id, turn)
}

// AppendEvent records a progress event for the bound session.
func (r *Recorder) AppendEvent(ev reflection.ProgressEvent) {
	_ = r.store.AppendEvent(r.id, ev)
}

func (s *Store) lookup(id string) (*state, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}
