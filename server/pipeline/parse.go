package pipeline

import (
	"encoding/json"
	"strings"

	apierrors "github.com/maiahq/maia/server/internal/errors"
)

// stripFences removes a markdown code fence wrapper if present. Models
// often wrap JSON in ```json blocks despite instructions.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// parseClassification decodes and normalizes a classification verdict.
// Out-of-range urgency is clamped, unknown purposes are coerced, and
// undecodable output is a typed content error, never a panic.
func parseClassification(text string) (*Classification, error) {
	var result Classification
	if err := json.Unmarshal([]byte(stripFences(text)), &result); err != nil {
		return nil, apierrors.ContentInvalid("classification output is not valid JSON", err)
	}

	if result.UrgencyScore < 1 {
		result.UrgencyScore = 1
	}
	if result.UrgencyScore > 5 {
		result.UrgencyScore = 5
	}
	if _, ok := knownPurposes[result.Purpose]; !ok {
		result.Purpose = "unknown"
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 100 {
		result.Confidence = 100
	}
	if result.KeyPoints == nil {
		result.KeyPoints = []string{}
	}
	return &result, nil
}

// rawTask tolerates the shapes models actually produce: stakeholders as a
// single string, null, or a list.
type rawTask struct {
	TaskDescription string          `json:"task_description"`
	Deadline        *string         `json:"deadline"`
	Stakeholders    json.RawMessage `json:"stakeholders"`
}

// parseTasks decodes an extraction result. Records without a task
// description are dropped rather than failing the batch; malformed
// stakeholder fields degrade to an empty list.
func parseTasks(text string) ([]ExtractedTask, error) {
	cleaned := stripFences(text)

	var raw []rawTask
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, apierrors.ContentInvalid("task extraction output is not a valid JSON array", err)
	}

	tasks := make([]ExtractedTask, 0, len(raw))
	for _, r := range raw {
		description := strings.TrimSpace(r.TaskDescription)
		if description == "" {
			continue
		}
		tasks = append(tasks, ExtractedTask{
			TaskDescription: description,
			Deadline:        r.Deadline,
			Stakeholders:    coerceStakeholders(r.Stakeholders),
		})
	}
	return tasks, nil
}

func coerceStakeholders(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		cleaned := make([]string, 0, len(list))
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		return cleaned
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			return []string{single}
		}
	}
	return []string{}
}

// parseReplies decodes reply suggestions, dropping empty entries.
func parseReplies(text string) ([]string, error) {
	var replies []string
	if err := json.Unmarshal([]byte(stripFences(text)), &replies); err != nil {
		return nil, apierrors.ContentInvalid("reply output is not a valid JSON array of strings", err)
	}

	cleaned := make([]string, 0, len(replies))
	for _, reply := range replies {
		if reply = strings.TrimSpace(reply); reply != "" {
			cleaned = append(cleaned, reply)
		}
	}
	if len(cleaned) == 0 {
		return nil, apierrors.ContentInvalid("reply output contained no usable suggestions", nil)
	}
	return cleaned, nil
}
