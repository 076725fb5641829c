package evaluation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/internal/service/evaluation"
	"github.com/medlens/reflection/backend/internal/service/responder"
)

// scriptedResponder replies with one canned response per call, in order.
type scriptedResponder struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedResponder) Ask(_ context.Context, _ responder.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.responses) {
		return "", fmt.Errorf("unexpected call %d", s.calls)
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func needFixture(titles ...string) []reflection.NeedRecord {
	records := make([]reflection.NeedRecord, 0, len(titles))
	for _, title := range titles {
		records = append(records, reflection.NeedRecord{Need: title, Summary: "summary"})
	}
	return records
}

func TestEvaluateScoresEveryNeed(t *testing.T) {
	stub := &scriptedResponder{responses: []string{
		`{"feasibility_score": 8, "impact_score": 9, "innovation_score": 7, "resource_score": 8,
		  "strengths": ["clear value"], "weaknesses": ["regulatory risk"], "recommendations": ["pilot first"]}`,
		`{"feasibility_score": 4, "impact_score": 5, "innovation_score": 3, "resource_score": 4}`,
	}}

	report, err := evaluation.NewEvaluator(stub).Evaluate(context.Background(), needFixture("first", "second"))
	if err != nil {
		t.Fatalf("Evaluate err: %v", err)
	}

	if len(report.Evaluations) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(report.Evaluations))
	}
	first := report.Evaluations[0]
	if first.NeedTitle != "first" {
		t.Fatalf("evaluation keyed by %q", first.NeedTitle)
	}
	if first.OverallScore != 8.0 {
		t.Fatalf("overall = %v, want mean 8.0", first.OverallScore)
	}
	second := report.Evaluations[1]
	if second.OverallScore != 4.0 {
		t.Fatalf("second overall = %v, want 4.0", second.OverallScore)
	}
	if second.Strengths == nil || second.Weaknesses == nil {
		t.Fatal("missing lists must decode to empty, not nil")
	}
}

func TestEvaluateClampsOutOfRangeScores(t *testing.T) {
	stub := &scriptedResponder{responses: []string{
		`{"feasibility_score": -5, "impact_score": 15, "innovation_score": 3, "resource_score": 12}`,
	}}

	report, err := evaluation.NewEvaluator(stub).Evaluate(context.Background(), needFixture("wild"))
	if err != nil {
		t.Fatalf("Evaluate err: %v", err)
	}

	ev := report.Evaluations[0]
	for name, score := range map[string]float64{
		"feasibility": ev.FeasibilityScore,
		"impact":      ev.ImpactScore,
		"innovation":  ev.InnovationScore,
		"resource":    ev.ResourceScore,
		"overall":     ev.OverallScore,
	} {
		if score < 0 || score > 10 {
			t.Fatalf("%s score %v outside [0,10]", name, score)
		}
	}
	if ev.FeasibilityScore != 0 || ev.ImpactScore != 10 || ev.ResourceScore != 10 {
		t.Fatalf("clamping wrong: %+v", ev)
	}
	if ev.OverallScore != (0+10+3+10)/4.0 {
		t.Fatalf("overall = %v", ev.OverallScore)
	}
}

func TestEvaluateUnparseableResponseDegradesToNeutral(t *testing.T) {
	stub := &scriptedResponder{responses: []string{"I cannot score this."}}

	report, err := evaluation.NewEvaluator(stub).Evaluate(context.Background(), needFixture("odd"))
	if err != nil {
		t.Fatalf("Evaluate err: %v", err)
	}

	ev := report.Evaluations[0]
	if ev.OverallScore != 5.0 || ev.FeasibilityScore != 5.0 {
		t.Fatalf("expected neutral default, got %+v", ev)
	}
}

func TestEvaluateEmptyInput(t *testing.T) {
	report, err := evaluation.NewEvaluator(&scriptedResponder{}).Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Evaluate err: %v", err)
	}
	if len(report.Evaluations) != 0 {
		t.Fatalf("expected empty evaluations, got %d", len(report.Evaluations))
	}
	if len(report.TopPriorityNeeds) != 0 {
		t.Fatalf("expected no top priorities, got %v", report.TopPriorityNeeds)
	}
}

func TestTopPriorityThreshold(t *testing.T) {
	stub := &scriptedResponder{responses: []string{
		`{"feasibility_score": 9, "impact_score": 9, "innovation_score": 9, "resource_score": 9}`,
		`{"feasibility_score": 8, "impact_score": 8, "innovation_score": 8, "resource_score": 8}`,
		`{"feasibility_score": 2, "impact_score": 2, "innovation_score": 2, "resource_score": 2}`,
	}}

	report, err := evaluation.NewEvaluator(stub).Evaluate(context.Background(), needFixture("a", "b", "c"))
	if err != nil {
		t.Fatalf("Evaluate err: %v", err)
	}

	if len(report.TopPriorityNeeds) != 2 {
		t.Fatalf("expected the two needs at/above 8.0, got %v", report.TopPriorityNeeds)
	}
}

func TestTopPriorityFallsBackToBest(t *testing.T) {
	stub := &scriptedResponder{responses: []string{
		`{"feasibility_score": 3, "impact_score": 3, "innovation_score": 3, "resource_score": 3}`,
		`{"feasibility_score": 6, "impact_score": 6, "innovation_score": 6, "resource_score": 6}`,
	}}

	report, err := evaluation.NewEvaluator(stub).Evaluate(context.Background(), needFixture("low", "mid"))
	if err != nil {
		t.Fatalf("Evaluate err: %v", err)
	}

	if len(report.TopPriorityNeeds) != 1 || report.TopPriorityNeeds[0] != "mid" {
		t.Fatalf("expected single best need, got %v", report.TopPriorityNeeds)
	}
}

func TestEvaluatePropagatesResponderFailure(t *testing.T) {
	stub := &scriptedResponder{err: responder.ErrUnavailable}

	_, err := evaluation.NewEvaluator(stub).Evaluate(context.Background(), needFixture("a"))
	if !errors.Is(err, responder.ErrUnavailable) {
		t.Fatalf("expected responder error, got %v", err)
	}
}
