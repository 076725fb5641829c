package reflection

// PriorityLevel buckets an overall score into a coarse priority band.
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "High"
	PriorityMedium PriorityLevel = "Medium"
	PriorityLow    PriorityLevel = "Low"
)

// PrioritizedNeed is one row of the final ranking. OverallScore here is
// rounded to one decimal for display; ranking happened on full precision.
type PrioritizedNeed struct {
	Rank             int           `json:"rank"`
	NeedTitle        string        `json:"needTitle"`
	OverallScore     float64       `json:"overallScore"`
	FeasibilityScore float64       `json:"feasibilityScore"`
	ImpactScore      float64       `json:"impactScore"`
	InnovationScore  float64       `json:"innovationScore"`
	ResourceScore    float64       `json:"resourceScore"`
	PriorityLevel    PriorityLevel `json:"priorityLevel"`
}

// PrioritizationReport is the final deliverable of the pipeline.
type PrioritizationReport struct {
	PrioritizedNeeds []PrioritizedNeed `json:"prioritizedNeeds"`
	RankingCriteria  map[string]string `json:"rankingCriteria"`
	Recommendations  []string          `json:"recommendations"`
}
