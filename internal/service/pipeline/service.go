// Package pipeline coordinates the full reflection run for a session:
// discussion, needs collection, evaluation and prioritization, executed in
// the background so submission never blocks.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/internal/service/discussion"
	"github.com/medlens/reflection/backend/internal/service/evaluation"
	"github.com/medlens/reflection/backend/internal/service/needs"
	"github.com/medlens/reflection/backend/internal/service/prioritize"
	"github.com/medlens/reflection/backend/internal/service/responder"
	"github.com/medlens/reflection/backend/internal/service/session"
)

// Service is the seam the HTTP layer calls into.
type Service struct {
	store     *session.Store
	engine    *discussion.Engine
	collector *needs.Collector
	evaluator *evaluation.Evaluator
}

// NewService wires the pipeline stages around a shared responder client.
func NewService(store *session.Store, client responder.Client) *Service {
	return &Service{
		store:     store,
		engine:    discussion.NewEngine(client),
		collector: needs.NewCollector(client),
		evaluator: evaluation.NewEvaluator(client),
	}
}

// Submit validates the request, registers a queued session and starts the
// background run. Validation failures create no session.
func (s *Service) Submit(_ context.Context, query string, maxRounds int) (reflection.Session, error) {
	sess, err := s.store.Create(query, maxRounds)
	if err != nil {
		return reflection.Session{}, err
	}

	go s.run(sess.ID, query, maxRounds)

	log.Printf("[pipeline] session %s queued, rounds=%d", sess.ID, maxRounds)
	return sess, nil
}

// run executes the pipeline stages sequentially. Every stage error becomes a
// terminal session state; results produced before the failing stage stay
// retrievable.
func (s *Service) run(id, query string, maxRounds int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[pipeline] session %s panicked: %v", id, r)
			_ = s.store.Fail(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx := context.Background()
	_ = s.store.MarkRunning(id)
	rec := s.store.Recorder(id)

	result, err := s.engine.Run(ctx, query, maxRounds, rec)
	if err != nil {
		s.fail(id, "discussion", err)
		return
	}
	_ = s.store.SetDiscussion(id, result)

	records, err := s.collector.Collect(ctx, result, rec)
	if err != nil {
		s.fail(id, "needs collection", err)
		return
	}
	_ = s.store.SetNeeds(id, records)

	// Zero needs is a degraded success: the session still completes with
	// empty evaluation and prioritization lists.
	report, err := s.evaluator.Evaluate(ctx, records)
	if err != nil {
		s.fail(id, "evaluation", err)
		return
	}
	_ = s.store.SetEvaluation(id, report)
	_ = s.store.SetPrioritization(id, prioritize.Prioritize(report.Evaluations))

	_ = s.store.Complete(id)
	log.Printf("[pipeline] session %s completed with %d needs", id, len(records))
}

func (s *Service) fail(id, stage string, err error) {
	log.Printf("[pipeline] session %s failed during %s: %v", id, stage, err)
	_ = s.store.Fail(id, fmt.Sprintf("%s failed: %v", stage, err))
}

// Get returns the session record.
func (s *Service) Get(id string) (reflection.Session, error) {
	return s.store.Get(id)
}

// List returns every session record.
func (s *Service) List() []reflection.Session {
	return s.store.List()
}

// Subscribe streams the session's progress events.
func (s *Service) Subscribe(ctx context.Context, id string, replay bool) (<-chan reflection.ProgressEvent, error) {
	return s.store.Subscribe(ctx, id, replay)
}

// Discussion returns the discussion result once the stage has produced one.
func (s *Service) Discussion(id string) (reflection.DiscussionResult, bool, error) {
	return s.store.Discussion(id)
}

// Needs returns the extracted need records once collection has run.
func (s *Service) Needs(id string) ([]reflection.NeedRecord, bool, error) {
	return s.store.Needs(id)
}

// Evaluation returns the evaluation report once the stage has produced one.
func (s *Service) Evaluation(id string) (reflection.EvaluationReport, bool, error) {
	return s.store.Evaluation(id)
}

// Prioritization returns the prioritization report once the stage has
// produced one.
func (s *Service) Prioritization(id string) (reflection.PrioritizationReport, bool, error) {
	return s.store.Prioritization(id)
}
