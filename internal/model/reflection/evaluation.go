package reflection

// Evaluation scores a single need along four 0-10 dimensions. OverallScore is
// the plain mean of the four sub-scores, kept at full precision so ranking
// never loses ties to display rounding.
type Evaluation struct {
	NeedTitle        string   `json:"needTitle"`
	FeasibilityScore float64  `json:"feasibilityScore"`
	ImpactScore      float64  `json:"impactScore"`
	InnovationScore  float64  `json:"innovationScore"`
	ResourceScore    float64  `json:"resourceScore"`
	OverallScore     float64  `json:"overallScore"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	Recommendations  []string `json:"recommendations"`
}

// EvaluationReport bundles per-need evaluations with a session-level summary.
type EvaluationReport struct {
	Evaluations      []Evaluation `json:"evaluations"`
	Summary          string       `json:"summary"`
	TopPriorityNeeds []string     `json:"topPriorityNeeds"`
}
