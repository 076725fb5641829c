package reflection

// Agent identifies a fixed discussion role. Agents are tags steering prompt
// construction, not polymorphic objects.
type Agent string

const (
	AgentMedicalExpert Agent = "medical_expert"
	AgentEngineer      Agent = "engineer"
	AgentCollector     Agent = "collector"
	AgentEvaluator     Agent = "evaluator"
	AgentSystem        Agent = "system"
)

// DiscussionAgents returns the personas that take turns within a round, in
// speaking order.
func DiscussionAgents() []Agent {
	return []Agent{AgentMedicalExpert, AgentEngineer}
}
