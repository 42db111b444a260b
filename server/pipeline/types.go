// Package pipeline runs the structured AI operations: classify an email,
// extract action items, summarize, draft replies, and synthesize an agenda.
// Each operation builds a prompt, routes to a provider within budget,
// executes with retry, and validates the structured output.
package pipeline

// Classification is the structured verdict on a single email.
type Classification struct {
	UrgencyScore   int      `json:"urgency_score"`
	Purpose        string   `json:"purpose"`
	ResponseNeeded bool     `json:"response_needed"`
	EstimatedTime  int      `json:"estimated_time"`
	KeyPoints      []string `json:"key_points"`
	Confidence     int      `json:"confidence"`
}

// knownPurposes is the closed purpose vocabulary. Anything else from the
// model is coerced to "unknown".
var knownPurposes = map[string]struct{}{
	"important":      {},
	"action_request": {},
	"meeting_invite": {},
	"transactional":  {},
	"newsletter":     {},
	"digest_summary": {},
	"social":         {},
	"promotion":      {},
	"information":    {},
	"unknown":        {},
}

// ExtractedTask is one action item parsed from model output, before it is
// persisted.
type ExtractedTask struct {
	TaskDescription string   `json:"task_description"`
	Deadline        *string  `json:"deadline"`
	Stakeholders    []string `json:"stakeholders"`
}
