package reflection

import "time"

// ConversationTurn persists one agent utterance. Turns are append-only and
// ordered round-major, medical expert before engineer within a round.
type ConversationTurn struct {
	Round     int       `json:"round"`
	Agent     Agent     `json:"agent"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// DiscussionResult aggregates the output of a finished discussion.
type DiscussionResult struct {
	Conversation        []ConversationTurn `json:"conversation"`
	MedicalInsights     []string           `json:"medicalInsights"`
	EngineeringInsights []string           `json:"engineeringInsights"`
	Rounds              int                `json:"rounds"`
}
