package reflection

// NeedRecord is a structured, synthesized problem statement extracted from
// the discussion transcript. List order matches extraction order.
type NeedRecord struct {
	Need            string `json:"need"`
	Summary         string `json:"summary"`
	MedicalInsights string `json:"medicalInsights"`
	TechInsights    string `json:"techInsights"`
	Strategy        string `json:"strategy"`
}
