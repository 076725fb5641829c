// Package evaluation scores extracted needs along four dimensions and
// produces the session-level evaluation report.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/internal/service/responder"
)

// highPriorityThreshold marks needs worth calling out in the report summary.
const highPriorityThreshold = 8.0

// scorePayload mirrors the JSON contract requested from the responder for a
// single need. The model is not numerically reliable, so scores are clamped
// after decoding.
type scorePayload struct {
	FeasibilityScore float64  `json:"feasibility_score"`
	ImpactScore      float64  `json:"impact_score"`
	InnovationScore  float64  `json:"innovation_score"`
	ResourceScore    float64  `json:"resource_score"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	Recommendations  []string `json:"recommendations"`
}

// Evaluator scores need records one responder call per need.
type Evaluator struct {
	client responder.Client
}

// NewEvaluator creates an evaluator on top of the given responder.
func NewEvaluator(client responder.Client) *Evaluator {
	return &Evaluator{client: client}
}

// Evaluate produces exactly one Evaluation per need, keyed by its title. A
// responder failure aborts the whole stage; an unparseable response for a
// single need degrades to a neutral default instead.
func (e *Evaluator) Evaluate(ctx context.Context, needs []reflection.NeedRecord) (reflection.EvaluationReport, error) {
	if len(needs) == 0 {
		return reflection.EvaluationReport{
			Evaluations:      []reflection.Evaluation{},
			Summary:          "No needs were identified, nothing to evaluate.",
			TopPriorityNeeds: []string{},
		}, nil
	}

	evaluations := make([]reflection.Evaluation, 0, len(needs))
	for _, need := range needs {
		raw, err := e.client.Ask(ctx, responder.Request{
			Agent: reflection.AgentEvaluator,
			Query: needQuery(need),
		})
		if err != nil {
			return reflection.EvaluationReport{}, fmt.Errorf("evaluating %q: %w", need.Need, err)
		}

		evaluations = append(evaluations, buildEvaluation(need.Need, raw))
	}

	report := reflection.EvaluationReport{
		Evaluations:      evaluations,
		Summary:          buildSummary(evaluations),
		TopPriorityNeeds: topPriorityNeeds(evaluations),
	}
	log.Printf("[evaluator] scored %d needs, %d above threshold", len(evaluations), len(report.TopPriorityNeeds))
	return report, nil
}

// buildEvaluation parses one scoring response, clamping every sub-score into
// [0,10]. Overall is the plain mean of the four sub-scores.
func buildEvaluation(title, raw string) reflection.Evaluation {
	payload, ok := parseScores(raw)
	if !ok {
		log.Printf("[evaluator] unparseable response for %q, using neutral default", title)
		return neutralEvaluation(title)
	}

	feasibility := clampScore(payload.FeasibilityScore)
	impact := clampScore(payload.ImpactScore)
	innovation := clampScore(payload.InnovationScore)
	resource := clampScore(payload.ResourceScore)

	return reflection.Evaluation{
		NeedTitle:        title,
		FeasibilityScore: feasibility,
		ImpactScore:      impact,
		InnovationScore:  innovation,
		ResourceScore:    resource,
		OverallScore:     (feasibility + impact + innovation + resource) / 4,
		Strengths:        orEmpty(payload.Strengths),
		Weaknesses:       orEmpty(payload.Weaknesses),
		Recommendations:  orEmpty(payload.Recommendations),
	}
}

// parseScores locates the JSON object in the response, tolerating fenced code
// blocks and surrounding prose.
func parseScores(raw string) (scorePayload, bool) {
	text := strings.TrimSpace(raw)

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return scorePayload{}, false
	}

	var payload scorePayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return scorePayload{}, false
	}
	return payload, true
}

func neutralEvaluation(title string) reflection.Evaluation {
	return reflection.Evaluation{
		NeedTitle:        title,
		FeasibilityScore: 5.0,
		ImpactScore:      5.0,
		InnovationScore:  5.0,
		ResourceScore:    5.0,
		OverallScore:     5.0,
		Strengths:        []string{"Needs further analysis"},
		Weaknesses:       []string{"Automated scoring failed for this need"},
		Recommendations:  []string{"Re-run the evaluation"},
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// needQuery renders one need for the evaluator role.
func needQuery(need reflection.NeedRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Need: %s\n", need.Need)
	fmt.Fprintf(&b, "Summary: %s\n", need.Summary)
	fmt.Fprintf(&b, "Medical perspective: %s\n", need.MedicalInsights)
	fmt.Fprintf(&b, "Technical perspective: %s\n", need.TechInsights)
	fmt.Fprintf(&b, "Implementation strategy: %s\n", need.Strategy)
	b.WriteString("\nScore this need and respond with the JSON object only.")
	return b.String()
}

func buildSummary(evaluations []reflection.Evaluation) string {
	best := evaluations[0]
	for _, ev := range evaluations[1:] {
		if ev.OverallScore > best.OverallScore {
			best = ev
		}
	}
	return fmt.Sprintf("Evaluated %d needs. Highest scoring: %q at %.1f/10.",
		len(evaluations), best.NeedTitle, best.OverallScore)
}

// topPriorityNeeds lists titles scoring at or above the threshold, falling
// back to the single best need when none reach it.
func topPriorityNeeds(evaluations []reflection.Evaluation) []string {
	titles := make([]string, 0, len(evaluations))
	for _, ev := range evaluations {
		if ev.OverallScore >= highPriorityThreshold {
			titles = append(titles, ev.NeedTitle)
		}
	}
	if len(titles) > 0 {
		return titles
	}

	best := evaluations[0]
	for _, ev := range evaluations[1:] {
		if ev.OverallScore > best.OverallScore {
			best = ev
		}
	}
	return []string{best.NeedTitle}
}
