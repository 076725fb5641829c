// Package prioritize ranks evaluated needs and derives the final
// recommendation list. It is pure: no responder calls, fixed policy.
package prioritize

import (
	"fmt"
	"math"
	"sort"

	"github.com/medlens/reflection/backend/internal/model/reflection"
)

// Priority band thresholds on the overall score.
const (
	highThreshold   = 7.0
	mediumThreshold = 4.0
)

// Prioritize sorts evaluations by overall score descending (stable, so ties
// keep extraction order), assigns 1-based ranks and buckets each need into a
// priority band.
func Prioritize(evaluations []reflection.Evaluation) reflection.PrioritizationReport {
	sorted := append([]reflection.Evaluation(nil), evaluations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OverallScore > sorted[j].OverallScore
	})

	prioritized := make([]reflection.PrioritizedNeed, 0, len(sorted))
	for i, ev := range sorted {
		prioritized = append(prioritized, reflection.PrioritizedNeed{
			Rank:             i + 1,
			NeedTitle:        ev.NeedTitle,
			OverallScore:     round1(ev.OverallScore),
			FeasibilityScore: ev.FeasibilityScore,
			ImpactScore:      ev.ImpactScore,
			InnovationScore:  ev.InnovationScore,
			ResourceScore:    ev.ResourceScore,
			PriorityLevel:    priorityLevel(ev.OverallScore),
		})
	}

	return reflection.PrioritizationReport{
		PrioritizedNeeds: prioritized,
		RankingCriteria:  rankingCriteria(),
		Recommendations:  recommendations(prioritized),
	}
}

// priorityLevel buckets a full-precision overall score.
func priorityLevel(score float64) reflection.PriorityLevel {
	switch {
	case score >= highThreshold:
		return reflection.PriorityHigh
	case score >= mediumThreshold:
		return reflection.PriorityMedium
	default:
		return reflection.PriorityLow
	}
}

// rankingCriteria documents the four dimensions and the sort key. Static
// content, not computed.
func rankingCriteria() map[string]string {
	return map[string]string{
		"primary":     "Overall score (plain mean of the four dimensions, 0.25 weight each)",
		"feasibility": "Technical implementation possibility (0-10)",
		"impact":      "Potential impact on the healthcare system (0-10)",
		"innovation":  "Innovation level and differentiation (0-10)",
		"resource":    "Resource efficiency (10 = low resource requirement)",
	}
}

// recommendations derives the global suggestion list from the ranking. Empty
// input yields an empty list; otherwise the list is never empty.
func recommendations(prioritized []reflection.PrioritizedNeed) []string {
	if len(prioritized) == 0 {
		return []string{}
	}

	recs := []string{
		fmt.Sprintf("Prioritize %q as it has the highest overall score of %.1f",
			prioritized[0].NeedTitle, prioritized[0].OverallScore),
	}
	if len(prioritized) > 1 {
		recs = append(recs, "Focus on the top 3 ranked needs for maximum impact")
	}
	recs = append(recs,
		"Consider resource constraints when selecting implementation order",
		"Regularly reassess priorities based on changing requirements",
	)
	return recs
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
