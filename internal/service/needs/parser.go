package needs

import (
	"encoding/json"
	"strings"

	"github.com/medlens/reflection/backend/internal/model/reflection"
)

// needPayload mirrors the JSON contract requested from the responder. Missing
// fields decode to empty strings instead of failing the batch.
type needPayload struct {
	Need            string `json:"need"`
	Summary         string `json:"summary"`
	MedicalInsights string `json:"medical_insights"`
	TechInsights    string `json:"tech_insights"`
	Strategy        string `json:"strategy"`
}

// parseNeeds extracts need records from a synthesis response. The responder
// is asked for a JSON array but often wraps it in prose or a fenced code
// block; zero parseable needs is a valid outcome, not an error.
func parseNeeds(raw string) []reflection.NeedRecord {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil
	}

	var items []needPayload
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil
	}

	records := make([]reflection.NeedRecord, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := normalizeTitle(item.Need)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		records = append(records, reflection.NeedRecord{
			Need:            item.Need,
			Summary:         item.Summary,
			MedicalInsights: item.MedicalInsights,
			TechInsights:    item.TechInsights,
			Strategy:        item.Strategy,
		})
	}
	return records
}

// extractJSONArray strips fenced code blocks and surrounding prose, returning
// the outermost JSON array in the text.
func extractJSONArray(raw string) string {
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

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// normalizeTitle collapses internal whitespace so visually identical titles
// dedup to the same key.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}
